package assets

import "embed"

//go:embed styles templates
var embedded embed.FS

// Embedded returns the assets compiled into the binary.
func Embedded() Source {
	return fsSource{fsys: embedded, label: "embedded assets"}
}
