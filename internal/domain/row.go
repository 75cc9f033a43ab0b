package domain

// Row is a column-keyed projection produced by joined or aggregate reads.
// Values keep the driver's scan types except []byte, which becomes string.
type Row map[string]any
