package router

import (
	"strings"

	"github.com/PixPMusic/leslieleds-controller/internal/midi"
)

// AutoSelect picks the endpoint to connect to after a refresh: the first
// whose label or identifier contains primary, else the first containing
// secondary, else the first endpoint. Matching is case-sensitive.
func AutoSelect(endpoints []midi.EndpointDescriptor, primary, secondary string) (midi.EndpointDescriptor, bool) {
	if len(endpoints) == 0 {
		return midi.EndpointDescriptor{}, false
	}
	for _, marker := range []string{primary, secondary} {
		if marker == "" {
			continue
		}
		for _, d := range endpoints {
			if strings.Contains(d.Label, marker) || strings.Contains(d.Identifier, marker) {
				return d, true
			}
		}
	}
	return endpoints[0], true
}
