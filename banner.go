package hxnav

import (
	"fmt"
	"net/url"
)

// Banner is the startup line printed to the diagnostic console: the project
// name and where its source archive can be downloaded from the current host.
func Banner(project string, loc *url.URL, sourcePath string) string {
	src := url.URL{Path: sourcePath}
	if loc != nil {
		src.Scheme = loc.Scheme
		src.Host = loc.Host
	}
	return fmt.Sprintf("%s: source code is available at %s", project, src.String())
}
