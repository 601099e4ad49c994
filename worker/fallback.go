package worker

import (
	"encoding/json"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/chrisvdg/trainerproxy/cache"
)

const offlinePage = `<!DOCTYPE html>
<html>
<head>
  <title>Number Trainer - Offline</title>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <style>
    body {
      font-family: -apple-system, BlinkMacSystemFont, sans-serif;
      text-align: center;
      padding: 20px;
      background: #f8fafc;
      color: #1e293b;
    }
    .container {
      max-width: 400px;
      margin: 50px auto;
      padding: 30px;
      background: white;
      border-radius: 12px;
      box-shadow: 0 4px 20px rgba(0,0,0,0.1);
    }
    .icon { font-size: 48px; margin-bottom: 20px; }
    h1 { color: #2563eb; margin-bottom: 20px; }
    p { margin-bottom: 20px; line-height: 1.6; }
    button {
      background: #2563eb;
      color: white;
      border: none;
      padding: 12px 24px;
      border-radius: 8px;
      cursor: pointer;
      font-size: 16px;
    }
  </style>
</head>
<body>
  <div class="container">
    <div class="icon">&#129504;</div>
    <h1>Number Trainer</h1>
    <p>You're currently offline. Please check your internet connection and try again.</p>
    <button onclick="window.location.reload()">Try Again</button>
  </div>
</body>
</html>
`

const (
	cssStub = "/* Offline - CSS unavailable */"
	jsStub  = `console.log("Offline - JS unavailable");`
)

type offlineStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Message string `json:"message"`
}

type offlineError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Synthesize builds the response served when both network and cache failed.
// cause is returned for static assets without a stub.
func (w *Worker) Synthesize(class Class, u *url.URL, cause error) (*cache.Response, error) {
	switch class {
	case ClassAPI:
		if w.isHealthCheck(u) {
			return jsonResponse(http.StatusOK, offlineStatus{
				Status:  "offline",
				Service: "number-trainer-web",
				Message: "Application is running offline",
			}), nil
		}
		return jsonResponse(http.StatusServiceUnavailable, offlineError{
			Error:   "Network unavailable",
			Message: "Please check your internet connection",
		}), nil
	case ClassStatic:
		switch path.Ext(u.Path) {
		case ".css":
			return textResponse("text/css", cssStub), nil
		case ".js":
			return textResponse("application/javascript", jsStub), nil
		default:
			if cause == nil {
				cause = ErrNetworkUnavailable
			}
			return nil, cause
		}
	case ClassPage:
		return textResponse("text/html; charset=utf-8", offlinePage), nil
	default:
		return nil, ErrNotIntercepted
	}
}

func (w *Worker) isHealthCheck(u *url.URL) bool {
	hp := w.cfg.HealthPath
	if hp == "" {
		return false
	}
	return u.Path == hp || strings.HasPrefix(u.Path, hp+"/")
}

func jsonResponse(status int, v interface{}) *cache.Response {
	// v is always one of the fixed payloads above
	body, _ := json.Marshal(v)
	h := http.Header{}
	h.Set("Content-Type", "application/json")

	return cache.NewResponse(status, h, body)
}

func textResponse(contentType, body string) *cache.Response {
	h := http.Header{}
	h.Set("Content-Type", contentType)

	return cache.NewResponse(http.StatusOK, h, []byte(body))
}
