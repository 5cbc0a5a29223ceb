package routegroups

import "net/http"

type Guards struct {
	// LoginLimit throttles credential submissions.
	LoginLimit func(http.HandlerFunc) http.HandlerFunc
}

func (g Guards) Limited(handler http.HandlerFunc) http.HandlerFunc {
	if g.LoginLimit == nil {
		return handler
	}
	return g.LoginLimit(handler)
}
