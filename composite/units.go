package composite

// RVP6ToDBZ converts a raw RVP6 value of the 8-bit family to reflectivity in dBZ.
func RVP6ToDBZ(v float64) float64 {
	return v/2 - 32.5
}

// Scaled multiplies every value by precision, typically Metadata.Precision of a 16-bit product.
func (g *Grid) Scaled(precision float64) []float64 {
	out := make([]float64, len(g.Data))
	for idx, v := range g.Data {
		out[idx] = float64(v) * precision
	}
	return out
}

// DBZ converts every value from RVP6 units to dBZ.
func (g *Grid) DBZ() []float64 {
	out := make([]float64, len(g.Data))
	for idx, v := range g.Data {
		out[idx] = RVP6ToDBZ(float64(v))
	}
	return out
}

// Physical converts a decoded grid to physical units: dBZ for the 8-bit family, value times
// precision for the 16-bit family, unchanged for run-length products. Cells in the no-data
// mask are set to missing.
func (g *Grid) Physical(meta *Metadata, missing float64) ([]float64, error) {
	enc, err := EncodingFor(meta.ProductType)
	if err != nil {
		return nil, err
	}

	var out []float64
	switch enc {
	case EncodingByte:
		out = g.DBZ()
	case EncodingFlagged:
		out = g.Scaled(meta.Precision)
	default:
		out = g.Scaled(1)
	}

	if meta.Masks != nil {
		for _, idx := range meta.Masks.NoData {
			out[idx] = missing
		}
	}
	return out, nil
}
