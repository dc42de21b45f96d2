// Package search finds objects by free text and by filter expressions.
package search

import (
	"html"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/hkxedit/hkxedit/internal/tree"
)

var tokenPattern = regexp.MustCompile(`[A-Za-z0-9_]+`)

// Graph is what the index and filters read from a file. *hkx.File and
// *behavior.File satisfy it.
type Graph interface {
	Objects() []string
	Class(id string) string
	Object(id string) (tree.NodeID, bool)
	Document() *tree.Document
	References(id string) []string
	ReferencedBy(id string) []string
	IsEssential(id string) bool
}

type Document struct {
	ID     string         `json:"id"`
	Class  string         `json:"class"`
	Name   string         `json:"name,omitempty"`
	Length int            `json:"length"`
	Terms  map[string]int `json:"terms"`
}

type Index struct {
	DocumentCount int            `json:"document_count"`
	AvgDocLength  float64        `json:"avg_doc_length"`
	DocFreq       map[string]int `json:"doc_freq"`
	Documents     []Document     `json:"documents"`
}

type Result struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Build indexes every object of g by ID, name, class and string params.
func Build(g Graph) *Index {
	if g == nil {
		return &Index{DocFreq: map[string]int{}}
	}

	ids := g.Objects()
	documents := make([]Document, 0, len(ids))
	docFreq := make(map[string]int)
	totalLength := 0

	for _, id := range ids {
		name := nameOf(g, id)
		terms := make(map[string]int)
		addWeighted(terms, strings.TrimPrefix(id, "#"), 4)
		addWeighted(terms, name, 4)
		addWeighted(terms, g.Class(id), 2)
		for _, value := range stringParams(g, id) {
			addWeighted(terms, value, 1)
		}
		length := 0
		for _, count := range terms {
			length += count
		}
		if length == 0 {
			continue
		}

		documents = append(documents, Document{
			ID:     id,
			Class:  g.Class(id),
			Name:   name,
			Length: length,
			Terms:  terms,
		})
		totalLength += length

		for term := range terms {
			docFreq[term]++
		}
	}

	avgDocLength := 0.0
	if len(documents) > 0 {
		avgDocLength = float64(totalLength) / float64(len(documents))
	}

	return &Index{
		DocumentCount: len(documents),
		AvgDocLength:  avgDocLength,
		DocFreq:       docFreq,
		Documents:     documents,
	}
}

func nameOf(g Graph, id string) string {
	node, ok := g.Object(id)
	if !ok {
		return ""
	}
	doc := g.Document()
	param := doc.GetByName(node, "name")
	if param == tree.InvalidNode || len(doc.Children(param)) > 0 {
		return ""
	}
	return html.UnescapeString(strings.TrimSpace(doc.Text(param)))
}

// stringParams returns the text of every leaf param of id that reads as a
// word rather than a number, flag or object reference.
func stringParams(g Graph, id string) []string {
	node, ok := g.Object(id)
	if !ok {
		return nil
	}
	doc := g.Document()
	var out []string
	doc.Walk(node, func(n tree.NodeID) bool {
		if doc.Tag(n) != "hkparam" || len(doc.Children(n)) > 0 || doc.Attr(n, "name") == "name" {
			return true
		}
		text := strings.TrimSpace(doc.Text(n))
		if isWord(text) {
			out = append(out, html.UnescapeString(text))
		}
		return true
	})
	return out
}

func isWord(text string) bool {
	switch text {
	case "", "null", "true", "false":
		return false
	}
	if strings.HasPrefix(text, "#") || strings.HasPrefix(text, "(") {
		return false
	}
	if _, err := strconv.ParseFloat(text, 64); err == nil {
		return false
	}
	return strings.IndexFunc(text, unicode.IsLetter) >= 0
}

func Search(index *Index, query string, limit int) []Result {
	if index == nil || len(index.Documents) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = 10
	}

	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return nil
	}

	seenTerms := make(map[string]bool, len(queryTerms))
	uniqueTerms := make([]string, 0, len(queryTerms))
	for _, term := range queryTerms {
		if seenTerms[term] {
			continue
		}
		seenTerms[term] = true
		uniqueTerms = append(uniqueTerms, term)
	}

	k1 := 1.2
	b := 0.75
	n := float64(index.DocumentCount)
	avgLen := index.AvgDocLength
	if avgLen <= 0 {
		avgLen = 1
	}

	results := make([]Result, 0)
	for _, doc := range index.Documents {
		score := 0.0
		docLen := float64(doc.Length)
		for _, term := range uniqueTerms {
			tf := float64(doc.Terms[term])
			if tf <= 0 {
				continue
			}
			df := float64(index.DocFreq[term])
			if df <= 0 {
				continue
			}
			idf := math.Log(1.0 + ((n - df + 0.5) / (df + 0.5)))
			numerator := tf * (k1 + 1.0)
			denominator := tf + k1*(1.0-b+b*(docLen/avgLen))
			score += idf * (numerator / denominator)
		}
		if score > 0 {
			results = append(results, Result{ID: doc.ID, Score: score})
		}
	}

	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}
	if len(results) == 0 {
		return fuzzyNameFallback(index.Documents, query, limit)
	}
	return results
}

func sortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
}

func addWeighted(terms map[string]int, value string, weight int) {
	if weight <= 0 {
		return
	}
	for _, token := range tokenize(value) {
		terms[token] += weight
	}
}

// tokenize lowercases value into words. Mixed-case words such as class
// names also yield their parts, so "hkbClipGenerator" matches "clip".
func tokenize(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, word := range tokenPattern.FindAllString(value, -1) {
		out = append(out, strings.ToLower(word))
		parts := splitCamel(word)
		if len(parts) > 1 {
			out = append(out, parts...)
		}
	}
	return out
}

func splitCamel(word string) []string {
	var parts []string
	start := 0
	runes := []rune(word)
	for i := 1; i < len(runes); i++ {
		if unicode.IsUpper(runes[i]) && !unicode.IsUpper(runes[i-1]) || runes[i] == '_' {
			if part := strings.Trim(string(runes[start:i]), "_"); part != "" {
				parts = append(parts, strings.ToLower(part))
			}
			start = i
		}
	}
	if part := strings.Trim(string(runes[start:]), "_"); part != "" {
		parts = append(parts, strings.ToLower(part))
	}
	return parts
}

func fuzzyNameFallback(documents []Document, query string, limit int) []Result {
	needle := normalizeForFuzzy(query)
	if needle == "" {
		return nil
	}

	results := make([]Result, 0)
	for _, doc := range documents {
		candidate := normalizeForFuzzy(doc.Name)
		if candidate == "" {
			continue
		}
		distance := levenshteinDistance(needle, candidate)
		threshold := len(candidate) / 3
		if threshold < 2 {
			threshold = 2
		}
		if distance > threshold {
			continue
		}
		results = append(results, Result{ID: doc.ID, Score: 1.0 / float64(1+distance)})
	}

	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func normalizeForFuzzy(value string) string {
	words := tokenPattern.FindAllString(strings.ToLower(value), -1)
	return strings.Join(words, "")
}

func levenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		current := make([]int, len(b)+1)
		current[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			current[j] = min(current[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev = current
	}

	return prev[len(b)]
}
