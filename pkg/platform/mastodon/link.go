package mastodon

import (
	"net/url"
	"strings"
)

// nextMaxID extracts max_id from the rel="next" entry of a Link header:
//
//	<https://instance/api/v1/favourites?max_id=123>; rel="next", <...>; rel="prev"
//
// It returns "" when there is no next page.
func nextMaxID(link string) string {
	for _, part := range strings.Split(link, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}

		isNext := false
		for _, param := range segments[1:] {
			param = strings.TrimSpace(param)
			if strings.EqualFold(param, `rel="next"`) || strings.EqualFold(param, "rel=next") {
				isNext = true
				break
			}
		}
		if !isNext {
			continue
		}

		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		u, err := url.Parse(target[1 : len(target)-1])
		if err != nil {
			continue
		}
		return u.Query().Get("max_id")
	}
	return ""
}
