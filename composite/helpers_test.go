package composite

import (
	"encoding/binary"
	"fmt"
)

// buildComposite assembles a composite with a header declaring declared payload bytes followed
// by payload. extra is appended to the header after the grid dimensions.
func buildComposite(product string, rows, cols, declared int, extra string, payload []byte) []byte {
	prefix := product + "041050" + CompositeRadarID + "0517"
	rest := "VS 3SW   2.18.3PR E-01INT  60" + fmt.Sprintf("GP%4dx%4d", rows, cols) + extra
	headerLength := len(prefix) + len("BY0000000") + len(rest)
	header := prefix + fmt.Sprintf("BY%07d", headerLength+1+declared) + rest

	out := append([]byte(header), etx)
	return append(out, payload...)
}

func words(ws ...uint16) []byte {
	out := make([]byte, 2*len(ws))
	for i, w := range ws {
		binary.LittleEndian.PutUint16(out[2*i:], w)
	}
	return out
}
