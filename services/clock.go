package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"online-admission/logger"
	"online-admission/services/placement"
)

// SystemClock reads the local clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// WorldTimeClock asks a time API for the current time and falls back to the
// local clock when the API cannot answer.
type WorldTimeClock struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
}

// NewClock returns a WorldTimeClock when url is set, SystemClock otherwise.
func NewClock(url string) placement.Clock {
	if url == "" {
		return SystemClock{}
	}
	return &WorldTimeClock{URL: url, Client: http.DefaultClient, Timeout: 3 * time.Second}
}

func (c *WorldTimeClock) Now() time.Time {
	t, err := c.fetch()
	if err != nil {
		logger.Warn("Time API unavailable, using system clock: %v", err)
		return time.Now().UTC()
	}
	return t
}

func (c *WorldTimeClock) fetch() (time.Time, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return time.Time{}, err
	}
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return time.Time{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("time api returned %s", resp.Status)
	}

	var body struct {
		UTCDatetime string `json:"utc_datetime"`
		Datetime    string `json:"datetime"`
		DateTime    string `json:"dateTime"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return time.Time{}, fmt.Errorf("decode time api response: %w", err)
	}
	for _, raw := range []string{body.UTCDatetime, body.Datetime, body.DateTime} {
		if raw == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return t.UTC(), nil
		}
		// timeapi.io omits the zone and reports UTC
		if t, err := time.Parse("2006-01-02T15:04:05.999999999", raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("time api response has no usable datetime")
}

// Platform classes recorded on activity logs.
const (
	PlatformMobile  = "mobile"
	PlatformTablet  = "tablet"
	PlatformDesktop = "desktop"
	PlatformUnknown = "unknown"
)

// ClassifyPlatform buckets a User-Agent into a platform class.
func ClassifyPlatform(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case ua == "":
		return PlatformUnknown
	case strings.Contains(ua, "ipad"), strings.Contains(ua, "tablet"),
		strings.Contains(ua, "android") && !strings.Contains(ua, "mobile"):
		return PlatformTablet
	case strings.Contains(ua, "mobi"), strings.Contains(ua, "iphone"), strings.Contains(ua, "android"):
		return PlatformMobile
	default:
		return PlatformDesktop
	}
}

// ClientFromRequest describes the caller of r for the activity log.
func ClientFromRequest(r *http.Request) placement.Client {
	return placement.Client{
		NetworkAddress: networkAddress(r),
		Platform:       ClassifyPlatform(r.UserAgent()),
	}
}

func networkAddress(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
