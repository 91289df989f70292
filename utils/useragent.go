package utils

import "github.com/mileusna/useragent"

// ClassifyUserAgent derives browser, OS and device-class labels from a
// raw user-agent string. Unknown values come back as empty strings. The
// function is pure; swapping the underlying parser does not affect any
// caller.
func ClassifyUserAgent(raw string) (browserName, osName, deviceType string) {
	ua := useragent.Parse(raw)

	switch {
	case ua.Mobile:
		deviceType = "mobile"
	case ua.Tablet:
		deviceType = "tablet"
	case ua.Desktop:
		deviceType = "desktop"
	case ua.Bot:
		deviceType = "bot"
	}

	browserName = ua.Name
	// The parser echoes an unrecognized input back as its name.
	if browserName == raw {
		browserName = ""
	}

	return browserName, ua.OS, deviceType
}
