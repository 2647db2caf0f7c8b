package webapp

import "fmt"

// ConfigScript returns the /config.js body that tells the browser where the
// API lives
func ConfigScript(apiURL string, reviewPageSize int) string {
	return fmt.Sprintf(`
// cvpreview Frontend Configuration
window.cvpreviewConfig = {
    apiURL: %q,
    reviewPageSize: %d
};
console.log("cvpreview Config loaded:", window.cvpreviewConfig);
`, apiURL, reviewPageSize)
}
