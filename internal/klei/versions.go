package klei

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dimspell/lobbywatch/internal/app/logger/logging"
	"github.com/dimspell/lobbywatch/internal/model"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// versionRowClass marks one release entry in the update history page.
const versionRowClass = "cCmsRecord_row"

// Versions scrapes the published update history. Rows that cannot be parsed
// are skipped.
func (c *Client) Versions(ctx context.Context) ([]model.Version, error) {
	url := c.Config.Endpoints.VersionURL

	var body []byte
	_, err := c.queryRetry().Do(ctx, url, func() (err error) {
		body, err = c.get(ctx, url)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("could not read the update history: %w", err)
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not parse the update history: %w", err)
	}

	var versions []model.Version
	for n := range doc.Descendants() {
		if n.Type != html.ElementNode || n.DataAtom != atom.Li || !hasClass(n, versionRowClass) {
			continue
		}
		v, err := parseVersionRow(strippedStrings(n))
		if err != nil {
			slog.Debug("Skipped update history row", logging.Error(err))
			continue
		}
		versions = append(versions, v)
	}
	return versions, nil
}

// parseVersionRow reads the build number, the version type and the release
// date ("Released MM/DD/YY") from the texts of one row.
func parseVersionRow(texts []string) (model.Version, error) {
	if len(texts) < 3 {
		return model.Version{}, fmt.Errorf("expected 3 texts in a row, got %d", len(texts))
	}
	number, err := strconv.Atoi(texts[0])
	if err != nil {
		return model.Version{}, fmt.Errorf("invalid build number %q", texts[0])
	}
	versionType := model.VersionType(texts[1])
	if !versionType.Valid() {
		return model.Version{}, fmt.Errorf("invalid version type %q", texts[1])
	}
	released := texts[2]
	if len(released) < 17 {
		return model.Version{}, fmt.Errorf("invalid release date %q", released)
	}
	date, err := time.Parse("01/02/06", released[9:17])
	if err != nil {
		return model.Version{}, fmt.Errorf("invalid release date %q: %w", released, err)
	}
	return model.Version{Number: number, Type: versionType, Date: date}, nil
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key == "class" && slices.Contains(strings.Fields(attr.Val), class) {
			return true
		}
	}
	return false
}

// strippedStrings returns the non-blank text nodes below n in document order.
func strippedStrings(n *html.Node) []string {
	var texts []string
	for d := range n.Descendants() {
		if d.Type != html.TextNode {
			continue
		}
		if s := strings.TrimSpace(d.Data); s != "" {
			texts = append(texts, s)
		}
	}
	return texts
}
