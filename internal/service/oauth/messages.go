package oauth

import (
	"fmt"
	"time"
)

// User facing chat texts. HTML parse mode, so keep the markup minimal
// and never interpolate anything user controlled besides the generated
// authorization link.
const (
	msgAlreadyAuthorized = "You have already authorized access to Yandex.Disk."

	msgNoPrivateChat = "I can only send the authorization link in a private conversation. " +
		"Please message me directly and repeat the command."

	msgAuthorized = "<b>Done!</b> Yandex.Disk access is authorized. " +
		"You can publish files now."
)

func authorizationLinkText(url string, ttl time.Duration) string {
	minutes := int(ttl.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf(
		"Follow the <a href=\"%s\">link</a> to authorize access to your Yandex.Disk.\n"+
			"The link is valid for %d min.",
		url, minutes,
	)
}

func renewedText(now time.Time) string {
	return fmt.Sprintf(
		"Yandex.Disk access was renewed automatically at %s, no action needed.",
		now.Format("15:04 MST"),
	)
}
