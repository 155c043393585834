package pprint

import "fmt"

var bannerLines = []string{
	` ██╗███╗   ██╗███████╗██████╗ ██╗██████╗  █████╗ ██╗     `,
	` ██║████╗  ██║██╔════╝██╔══██╗██║██╔══██╗██╔══██╗██║     `,
	` ██║██╔██╗ ██║███████╗██████╔╝██║██████╔╝███████║██║     `,
	` ██║██║╚██╗██║╚════██║██╔═══╝ ██║██╔══██╗██╔══██║██║     `,
	` ██║██║ ╚████║███████║██║     ██║██║  ██║██║  ██║███████╗`,
	` ╚═╝╚═╝  ╚═══╝╚══════╝╚═╝     ╚═╝╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝`,
}

// PrintBanner prints the inspiral banner with version and tagline.
func PrintBanner(version, buildDate string) {
	fmt.Fprintln(Out)
	for i, l := range bannerLines {
		switch {
		case i < 2:
			fmt.Fprintln(Out, StylePrimary.Render(l))
		case i < 4:
			fmt.Fprintln(Out, StyleAccent.Render(l))
		case i < 5:
			fmt.Fprintln(Out, StyleText.Render(l))
		default:
			fmt.Fprintln(Out, StyleMuted.Render(l))
		}
	}
	fmt.Fprintln(Out)

	versionStr := StyleAccent.Render("  " + version)
	if buildDate != "" {
		versionStr += StyleMuted.Render("  built " + buildDate)
	}
	fmt.Fprintln(Out, StyleMuted.Render("  Two black holes, one shrinking orbit"))
	fmt.Fprintln(Out, versionStr)
	fmt.Fprintln(Out)
}

// PrintBannerSmall prints a compact single-line brand prefix.
func PrintBannerSmall() {
	fmt.Fprint(Out, StylePrimary.Render("◎ INSPIRAL")+" ")
}
