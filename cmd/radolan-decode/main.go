package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/jddeal/go-radolan/catalog"
	"github.com/jddeal/go-radolan/composite"
	"github.com/jddeal/go-radolan/dx"
	"github.com/jddeal/go-radolan/internal/observability"
	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
)

var cli struct {
	Args struct {
		Filenames []string `required:"yes"`
	} `positional-args:"yes" required:"yes"`
	LogLevel   string `short:"l" long:"log-level" description:"logging level" choice:"error" choice:"info" choice:"debug" choice:"trace" default:"info"`
	ShowHeader bool   `long:"show-header" description:"dumps out the parsed header as JSON"`
	HeaderOnly bool   `long:"header-only" description:"only read the header, skip the payload"`
	Missing    int32  `short:"m" long:"missing" description:"value written to cells without data in run-length products" default:"-9999"`
}

func main() {

	// parse the input args
	_, err := flags.Parse(&cli)
	if err != nil {
		os.Exit(1)
	}

	if err := observability.ConfigureLogging(cli.LogLevel, "text"); err != nil {
		logrus.Fatal(err)
	}

	failed := 0
	for _, filename := range cli.Args.Filenames {
		logrus.Info(color.CyanString("decoding ", filename))

		dxFile, err := isDX(filename)
		if err == nil {
			if dxFile {
				err = decodeDX(filename)
			} else {
				err = decodeComposite(filename)
			}
		}

		// keep going with the remaining files
		if err != nil {
			logrus.Errorf("could not read any data from %s: %v", filename, err)
			failed++
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// isDX selects the decoder by file name, falling back to the product type in the header
func isDX(filename string) (bool, error) {
	if e, ok := catalog.ParseName(filepath.Base(filename)); ok {
		return e.Product == "DX", nil
	}

	file, err := os.Open(filename)
	if err != nil {
		return false, err
	}
	defer file.Close()

	r, err := composite.Decompress(file)
	if err != nil {
		return false, err
	}
	header, err := composite.ReadHeader(r)
	if err != nil {
		return false, err
	}
	return strings.HasPrefix(header, "DX"), nil
}

func decodeComposite(filename string) error {
	grid, meta, err := composite.DecodeFile(filename, cli.Missing, !cli.HeaderOnly)
	if err != nil {
		return err
	}

	if cli.ShowHeader {
		dump(meta)
	}

	logrus.Infof("%s %s @ %s, %s, precision %g",
		color.CyanString(meta.ProductType),
		meta.RadarID,
		meta.DateTime.Format("2006-01-02 15:04 MST"),
		color.CyanString("%dx%d", meta.NRow, meta.NCol),
		meta.Precision,
	)
	if grid == nil {
		return nil
	}

	masks := meta.Masks
	logrus.Infof("  clutter %s, no data %s, secondary %s, negative %s",
		color.CyanString("%d", len(masks.Clutter)),
		color.CyanString("%d", len(masks.NoData)),
		color.CyanString("%d", len(masks.Secondary)),
		color.CyanString("%d", len(masks.Negative)),
	)

	values, err := grid.Physical(meta, math.NaN())
	if err != nil {
		return err
	}
	lo, hi := valueRange(values)
	logrus.Infof("  values %s .. %s", color.CyanString("%g", lo), color.CyanString("%g", hi))
	return nil
}

func decodeDX(filename string) error {
	scan, err := dx.DecodeFile(filename)
	if err != nil {
		return err
	}

	if cli.ShowHeader {
		dump(scan.Header)
	}

	logrus.Infof("%s %s @ %s, %s beams, clutter %s",
		color.CyanString(scan.Header.ProductType),
		scan.Header.RadarID,
		scan.Header.DateTime.Format("2006-01-02 15:04:05 MST"),
		color.CyanString("%d", len(scan.Beams)),
		color.CyanString("%d", len(scan.Clutter)),
	)

	var all []float64
	for _, beam := range scan.DBZ() {
		all = append(all, beam...)
	}
	lo, hi := valueRange(all)
	logrus.Infof("  dBZ %s .. %s", color.CyanString("%g", lo), color.CyanString("%g", hi))
	return nil
}

// valueRange ignores NaN, the stand-in for cells without data
func valueRange(values []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func dump(v interface{}) {
	j, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logrus.Error(err)
		return
	}
	fmt.Println(string(j))
}
