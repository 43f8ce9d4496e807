// sitesmith builds a small website from chat requests: a router decides
// whether to plan, a planner writes HTML/CSS/JS, and the code is saved to a
// sandbox served next to the chat.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
