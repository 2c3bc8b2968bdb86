package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

const banner = `
  ___       _                 _ 
 |_ _|_ __ | | _____  ___  __ _| |
  | || '_ \| |/ / __|/ _ \/ _` + "`" + ` | |
  | || | | |   <\__ \  __/ (_| | |
 |___|_| |_|_|\_\___/\___|\__,_|_|
`

func printBanner(w io.Writer) {
	fmt.Fprint(w, color.BlueString(banner))
	fmt.Fprintf(w, "%s\n\n", color.GreenString("  Document Sealing Service - Version %s", Version))
}
