package htmlutils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func parse(t *testing.T, src string) Element {
	t.Helper()

	doc, err := html.Parse(strings.NewReader(src))
	require.NoError(t, err)

	return FromNode(doc)
}

func tags(elems []Element) []string {
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		out = append(out, e.Tag())
	}

	return out
}

func TestFindAllDocumentOrder(t *testing.T) {
	root := parse(t, `<div><h2>A</h2><p>one</p><section><h3>B</h3></section></div>`)

	found := FindAll(root, IsHeading)

	require.Len(t, found, 2)
	assert.Equal(t, "A", found[0].Text())
	assert.Equal(t, "B", found[1].Text())
}

func TestNextSiblingsUntil(t *testing.T) {
	root := parse(t, `<body><h3>R</h3><p>a</p>text<p>b</p><h3>S</h3><p>c</p></body>`)

	headings := FindAll(root, HasTag("h3"))
	require.Len(t, headings, 2)

	sibs := NextSiblingsUntil(headings[0], IsHeading)
	assert.Equal(t, []string{"p", "p"}, tags(sibs))
	assert.Equal(t, "b", sibs[1].Text())

	all := NextSiblingsUntil(headings[0], nil)
	assert.Equal(t, []string{"p", "p", "h3", "p"}, tags(all))
}

func TestFlatten(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "paragraphs", src: `<p> Hello </p><p>world</p>`, want: "Hello world"},
		{name: "inline", src: `<p>a <b>bold</b> move</p>`, want: "a bold move"},
		{name: "script skipped", src: `<p>x</p><script>var y = 1;</script>`, want: "x"},
		{name: "comment skipped", src: `<p>x<!-- hidden --></p>`, want: "x"},
		{name: "empty", src: ``, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Flatten(parse(t, tt.src)))
		})
	}
}

func TestStaticTree(t *testing.T) {
	h := NewElement("H2", NewText("Réponse"))
	p1 := NewElement("p", NewText("first"))
	p2 := NewElement("p", NewText("second"))
	root := NewElement("div", h, NewText(" "), p1, p2)

	assert.Equal(t, "h2", h.Tag())
	assert.True(t, IsHeading(h))
	assert.Equal(t, []string{"p", "p"}, tags(h.NextSiblings()))
	assert.Equal(t, "Réponse first second", Flatten(root))
	assert.Equal(t, "Réponse firstsecond", root.Text())
	assert.Nil(t, root.NextSiblings())
}

func TestDocumentTag(t *testing.T) {
	root := parse(t, `<p>x</p>`)

	assert.Equal(t, DocumentTag, root.Tag())
	assert.Len(t, FindAll(root, HasTag("p")), 1)
}
