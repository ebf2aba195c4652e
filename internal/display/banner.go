package display

import (
	"fmt"
	"io"

	"github.com/backmassage/m8prep/internal/term"
)

const banner = `           ___
 _ __ ___ ( _ ) _ __  _ __ ___ _ __
| '_ ` + "`" + ` _ \/ _ \| '_ \| '__/ _ \ '_ \
| | | | | | (_) | |_) | | |  __/ |_) |
|_| |_| |_|\___/| .__/|_|  \___| .__/
                |_|            |_|`

// PrintBanner writes the ASCII art banner and version in the header style.
func PrintBanner(w io.Writer, version string) {
	fmt.Fprintln(w, term.Header.Render(banner))
	fmt.Fprintln(w, term.Muted.Render("  sample organizer for the M8 tracker, "+version))
	fmt.Fprintln(w)
}
