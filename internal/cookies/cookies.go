// Package cookies loads the exported TikTok session cookies and converts
// them to the Netscape format yt-dlp consumes.
package cookies

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// maxExpiry substitutes for cookies exported without an expiry.
const maxExpiry = 2147483647

// Cookie mirrors one entry of a browser cookie export.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"httpOnly"`
	Expiry   float64 `json:"expiry"`
}

// Load reads a JSON cookie export.
func Load(fs afero.Fs, path string) ([]Cookie, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies file %s: %w", path, err)
	}
	var out []Cookie
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse cookies file %s: %w", path, err)
	}
	return out, nil
}

// WriteNetscape writes the cookies as a Netscape cookie file.
func WriteNetscape(fs afero.Fs, cks []Cookie, path string) error {
	var b strings.Builder
	b.WriteString("# Netscape HTTP Cookie File\n")
	for _, c := range cks {
		domain := c.Domain
		if domain == "" {
			domain = ".tiktok.com"
		}
		cookiePath := c.Path
		if cookiePath == "" {
			cookiePath = "/"
		}
		secure := "FALSE"
		if c.Secure {
			secure = "TRUE"
		}
		expiry := int64(c.Expiry)
		if expiry <= 0 {
			expiry = maxExpiry
		}
		fields := []string{
			domain,
			"TRUE", // include subdomains
			cookiePath,
			secure,
			strconv.FormatInt(expiry, 10),
			c.Name,
			c.Value,
		}
		b.WriteString(strings.Join(fields, "\t"))
		b.WriteByte('\n')
	}
	if err := afero.WriteFile(fs, path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write netscape cookies %s: %w", path, err)
	}
	return nil
}

// Convert reads the JSON export at jsonPath and writes its Netscape form
// to txtPath. Done once at startup, after the browser session has the same
// cookies applied.
func Convert(fs afero.Fs, jsonPath, txtPath string) error {
	cks, err := Load(fs, jsonPath)
	if err != nil {
		return err
	}
	return WriteNetscape(fs, cks, txtPath)
}
