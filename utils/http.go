package utils

import (
	"net/http"
	"time"
)

// HTTPClient is shared by the GitHub notifier and the user sync worker.
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}
