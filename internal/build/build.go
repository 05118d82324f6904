package build

import "strings"

var (
	Version = "dev"
	AppName = "Evogate"
	Slug    = ""
)

func init() {
	if Slug == "" {
		Slug = strings.ToLower(AppName)
	}
}
