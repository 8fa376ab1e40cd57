package pipeline

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// RewriteRelativePaths converts relative img[src] and a[href] values under sel
// to absolute file:// URLs rooted at sourceDir.
// The capture page is loaded from a temp directory, so relative paths would
// otherwise resolve against the wrong place. If sourceDir is empty, nothing changes.
//
// Not rewritten:
//   - URLs, data URIs, anchors and absolute paths (already resolved)
//   - paths escaping sourceDir
//   - srcset and CSS url() references
func RewriteRelativePaths(sel *goquery.Selection, sourceDir string) error {
	if sourceDir == "" || sel == nil {
		return nil
	}

	absSourceDir, err := filepath.Abs(sourceDir)
	if err != nil {
		return err
	}

	sel.Find("img[src]").Each(func(_ int, el *goquery.Selection) {
		rewriteAttr(el, "src", absSourceDir)
	})
	sel.Find("a[href]").Each(func(_ int, el *goquery.Selection) {
		rewriteAttr(el, "href", absSourceDir)
	})
	return nil
}

// rewriteAttr rewrites a single attribute if it holds a relative path.
func rewriteAttr(el *goquery.Selection, attrName, sourceDir string) {
	val, ok := el.Attr(attrName)
	if !ok || !isRelativePath(val) {
		return
	}

	absPath := filepath.Join(sourceDir, val)
	if !isPathUnderDir(absPath, sourceDir) {
		return
	}
	el.SetAttr(attrName, pathToFileURL(absPath))
}

// isRelativePath returns true if the path should be rewritten.
func isRelativePath(path string) bool {
	if path == "" {
		return false
	}

	for _, prefix := range []string{"http://", "https://", "file://", "data:", "//", "#", "mailto:"} {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}

	return !filepath.IsAbs(path)
}

// isPathUnderDir checks if absPath is under dir (prevents path traversal).
func isPathUnderDir(absPath, dir string) bool {
	cleanPath := filepath.Clean(absPath)
	cleanDir := filepath.Clean(dir)

	if !strings.HasSuffix(cleanDir, string(filepath.Separator)) {
		cleanDir += string(filepath.Separator)
	}

	return strings.HasPrefix(cleanPath+string(filepath.Separator), cleanDir)
}

// pathToFileURL converts an absolute path to a file:// URL.
func pathToFileURL(absPath string) string {
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(absPath),
	}
	return u.String()
}
