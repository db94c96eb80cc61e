package infra

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// LogoSize is the edge length in pixels of stored company logos
const LogoSize = 24

// LogoDownloader handles downloading and caching company logos
type LogoDownloader struct {
	basePath string
	client   *http.Client
}

// NewLogoDownloader creates a LogoDownloader storing files under dir.
// An empty dir resolves to the per-user application data directory.
func NewLogoDownloader(dir string) (*LogoDownloader, error) {
	path := dir
	if path == "" {
		var err error
		path, err = getAssetsPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve assets path: %w", err)
		}
	}

	// Ensure directory exists
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create assets directory: %w", err)
	}

	return &LogoDownloader{
		basePath: path,
		client:   NewHTTPClient(10 * time.Second),
	}, nil
}

// DownloadLogo downloads the logo at logoURL for symbol if it doesn't exist.
// Returns the local file path on success.
// Images are resized to 24x24 pixels for consistent display.
func (d *LogoDownloader) DownloadLogo(ctx context.Context, symbol, logoURL string) (string, error) {
	// Security: Sanitize symbol to prevent path traversal
	safeSymbol := sanitizeSymbol(symbol)
	if safeSymbol == "" {
		return "", fmt.Errorf("invalid symbol: %s", symbol)
	}
	if logoURL == "" {
		return "", fmt.Errorf("no logo for %s", symbol)
	}

	filePath := d.LogoPath(safeSymbol)

	// Check if exists
	if _, err := os.Stat(filePath); err == nil {
		return filePath, nil // Already exists (Cache Hit)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, logoURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	srcImg, err := imaging.Decode(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	// Resize with high-quality Lanczos filter
	resizedImg := imaging.Resize(srcImg, LogoSize, LogoSize, imaging.Lanczos)

	if err := imaging.Save(resizedImg, filePath); err != nil {
		return "", fmt.Errorf("failed to save resized image: %w", err)
	}

	return filePath, nil
}

// LogoPath returns the local path for a symbol's logo
func (d *LogoDownloader) LogoPath(symbol string) string {
	return filepath.Join(d.basePath, strings.ToLower(sanitizeSymbol(symbol))+".png")
}

func getAssetsPath() (string, error) {
	dir, err := UserDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "assets", "logos"), nil
}

// UserDataDir resolves the per-user Equidify directory based on OS
func UserDataDir() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "Equidify"), nil
}

func sanitizeSymbol(symbol string) string {
	res := make([]rune, 0, len(symbol))
	for _, r := range symbol {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			res = append(res, r)
		}
	}
	return string(res)
}
