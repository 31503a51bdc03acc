package myhttp

import (
	"fmt"
	"os"
)

// GuessHostnameWithScheme derives the public hostname of this service without
// an incoming request at hand. Used when subscribing push-endpoints at startup.
func GuessHostnameWithScheme() string {
	project := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if project != "" {
		return fmt.Sprintf("https://%s.appspot.com", project)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return fmt.Sprintf("http://localhost:%s", port)
}
