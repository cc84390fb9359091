package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

// ErrHeaderMismatch means the wiki table layout changed and nothing on the
// page can be trusted
var ErrHeaderMismatch = errors.New("wiki table header mismatch")

// ErrNoTable is returned when the page has no table at all
var ErrNoTable = errors.New("wiki page has no table")

var wikiHeader = []string{"Code", "Server", "Rewards", "Duration"}

// Sponsored and bundled codes are never redeemable by the bot account
var blockedWords = map[string]bool{
	"prime":               true,
	"crucialgames":        true,
	"steelseries":         true,
	"alienware":           true,
	"intel gaming access": true,
	"amd rewards":         true,
	"giveaway)":           true,
	"bundle":              true,
	"twitch":              true,
	"discord":             true,
	"hoyofest":            true,
	"hoyo fest":           true,
}

var blockedTitles = map[string]bool{
	"HoYo FEST 2024":         true,
	"Glad Tidings From Afar": true,
}

var servers = map[string]bool{
	"All":                                true,
	"America, Europe, Asia, TW/HK/Macao": true,
	"China":                              true,
	"America":                            true,
	"Asia":                               true,
	"Europe":                             true,
	"TW/HK/Macao":                        true,
}

const serverChina = "China"

var (
	footnoteRe = regexp.MustCompile(`\[.*`)
	rewardRe   = regexp.MustCompile(`([\p{L}\p{N}_\s\-'()"]+) ×(\d+(?:,\d{3})*)`)
)

// WikiRow is one accepted row of a wiki code table
type WikiRow struct {
	Title    string
	Aliases  []string
	Server   string
	Rewards  []models.CodeReward
	Duration string
}

// China reports whether the row is only valid on the China server
func (r WikiRow) China() bool {
	return r.Server == serverChina
}

// FetchWiki downloads the wiki page of a game and returns its accepted rows.
// Games without a wiki page return nothing.
func (c *Client) FetchWiki(ctx context.Context, game models.Game) ([]WikiRow, error) {
	url := c.wikiURL(game)
	if url == "" {
		return nil, nil
	}
	body, err := c.get(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch wiki for %s: %w", game, err)
	}
	rows, err := ParseWiki(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse wiki for %s: %w", game, err)
	}
	return rows, nil
}

// ParseWiki reads the first table of the page, checks its header and returns
// the rows that pass the filters
func ParseWiki(r io.Reader) ([]WikiRow, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	table := findFirst(doc, atom.Table)
	if table == nil {
		return nil, ErrNoTable
	}

	var grid [][]string
	eachRow(table, func(tr *html.Node) {
		var cells []string
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.DataAtom == atom.Th || c.DataAtom == atom.Td) {
				cells = append(cells, cellText(c))
			}
		}
		if len(cells) > 0 {
			grid = append(grid, cells)
		}
	})

	if len(grid) == 0 || !equal(grid[0], wikiHeader) {
		return nil, ErrHeaderMismatch
	}

	var rows []WikiRow
	for _, cells := range grid[1:] {
		if row, ok := ParseRow(cells); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// ParseRow applies the row filters to the four cells of a table row
func ParseRow(cells []string) (WikiRow, bool) {
	if len(cells) != len(wikiHeader) {
		return WikiRow{}, false
	}

	title := CodeCell(cells[0])
	aliases := strings.Fields(title)
	if len(aliases) == 0 || blockedTitles[title] {
		return WikiRow{}, false
	}
	for _, a := range aliases {
		if blockedWords[strings.ToLower(a)] || !alphanumeric(a) {
			return WikiRow{}, false
		}
	}

	server, duration := cells[1], cells[3]
	if strings.Contains(duration, "Expired:") || !servers[server] {
		return WikiRow{}, false
	}

	return WikiRow{
		Title:    title,
		Aliases:  aliases,
		Server:   server,
		Rewards:  ParseRewards(cells[2]),
		Duration: duration,
	}, true
}

// CodeCell strips footnotes and the redeem button label from a code cell
func CodeCell(s string) string {
	s = footnoteRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "Quick Redeem", "")
	return strings.TrimRightFunc(s, unicode.IsSpace)
}

// ParseRewards extracts "name ×amount" pairs from a rewards cell
func ParseRewards(s string) []models.CodeReward {
	s = strings.ReplaceAll(s, `"`, "")
	var out []models.CodeReward
	for _, m := range rewardRe.FindAllStringSubmatch(s, -1) {
		amount, err := strconv.Atoi(strings.ReplaceAll(m[2], ",", ""))
		if err != nil {
			continue
		}
		name := strings.TrimLeftFunc(m[1], unicode.IsSpace)
		out = append(out, models.CodeReward{Reward: name, Amount: amount})
	}
	return out
}

func alphanumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

// eachRow visits the rows of table without descending into nested tables
func eachRow(table *html.Node, fn func(*html.Node)) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Tr:
				fn(c)
			case atom.Thead, atom.Tbody, atom.Tfoot:
				walk(c)
			}
		}
	}
	walk(table)
}

// cellText flattens a cell, rendering <br> as a space and collapsing whitespace
func cellText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			sb.WriteString(n.Data)
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			sb.WriteByte(' ')
		case n.Type == html.ElementNode && (n.DataAtom == atom.Style || n.DataAtom == atom.Script):
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
