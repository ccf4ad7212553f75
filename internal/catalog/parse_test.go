package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantIDs []string
	}{
		{
			name:    "root level products",
			input:   `<products><product><id>1</id></product><product><id>2</id></product></products>`,
			wantIDs: []string{"1", "2"},
		},
		{
			name:    "nested products",
			input:   `<catalog><products><product><id>n1</id></product></products></catalog>`,
			wantIDs: []string{"n1"},
		},
		{
			name:    "root level items",
			input:   `<feed><item><code>i1</code></item><item><code>i2</code></item></feed>`,
			wantIDs: []string{"i1", "i2"},
		},
		{
			name:    "root product wins over nested and items",
			input:   `<products><item><id>i</id></item><products><product><id>n</id></product></products><product><id>p</id></product></products>`,
			wantIDs: []string{"p"},
		},
		{
			name:    "nested wins over items",
			input:   `<products><item><id>i</id></item><products><product><id>n</id></product></products></products>`,
			wantIDs: []string{"n"},
		},
		{
			name:    "empty nested wrapper does not fall back to items",
			input:   `<catalog><products></products><item><id>i</id></item></catalog>`,
			wantIDs: []string{},
		},
		{
			name:    "unrecognized shape",
			input:   `<rss><channel><title>nope</title></channel></rss>`,
			wantIDs: []string{},
		},
		{
			name:    "empty root",
			input:   `<products/>`,
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := Parse([]byte(tt.input))
			require.NoError(t, err)

			ids := []string{}
			for _, it := range items {
				ids = append(ids, it.ExternalID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestParse_Synonyms(t *testing.T) {
	const doc = `<?xml version="1.0" encoding="UTF-8"?>
<products>
  <product>
    <product_id>a</product_id>
    <title>Title Name</title>
    <desc>Short</desc>
    <amount>5.50</amount>
    <quantity>3</quantity>
  </product>
  <product>
    <code>c</code>
    <id>b</id>
    <product_name>Third</product_name>
    <name>First</name>
    <qty>9</qty>
    <stock>1</stock>
  </product>
  <product>
    <id></id>
    <code>ignored</code>
    <name>Present but empty id</name>
  </product>
</products>`

	items, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, Item{ExternalID: "a", Name: "Title Name", Description: "Short", Price: 5.5, Stock: 3}, items[0])

	// Priority is by synonym, not by document order.
	assert.Equal(t, "b", items[1].ExternalID)
	assert.Equal(t, "First", items[1].Name)
	assert.Equal(t, 1, items[1].Stock)

	// The first present synonym wins even when it's empty.
	assert.Equal(t, "", items[2].ExternalID)
}

func TestParse_Normalization(t *testing.T) {
	const doc = `<products>
  <product>
    <id>  42  </id>
    <name><![CDATA[<b>Bold</b> &amp; Co]]></name>
    <description>&lt;p&gt;Hello &lt;em&gt;world&lt;/em&gt;&lt;/p&gt;</description>
    <price>9.99 TL</price>
    <stock>12 pcs</stock>
  </product>
  <product>
    <id>43</id>
    <name>Negative</name>
    <price>-4</price>
    <stock>-2</stock>
  </product>
  <product>
    <id>44</id>
    <name>Garbage</name>
    <price>call us</price>
    <stock>lots</stock>
  </product>
  <product>
    <id>45</id>
    <name>Exponent</name>
    <price>1.5E2</price>
    <stock>1e2</stock>
  </product>
  <product>
    <id>46</id>
    <name>Exponent with unit</name>
    <price>2.5e1 TL</price>
    <stock>NaN</stock>
  </product>
</products>`

	items, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, items, 5)

	assert.Equal(t, "42", items[0].ExternalID)
	assert.Equal(t, "Bold & Co", items[0].Name)
	assert.Equal(t, "Hello world", items[0].Description)
	assert.Equal(t, 9.99, items[0].Price)
	assert.Equal(t, 12, items[0].Stock)

	assert.Zero(t, items[1].Price)
	assert.Zero(t, items[1].Stock)
	assert.Zero(t, items[2].Price)
	assert.Zero(t, items[2].Stock)

	assert.Equal(t, 150.0, items[3].Price)
	assert.Equal(t, 100, items[3].Stock)
	assert.Equal(t, 25.0, items[4].Price)
	assert.Zero(t, items[4].Stock)
}

func TestParse_NameCapped(t *testing.T) {
	long := strings.Repeat("ş", 300)
	items, err := Parse([]byte(`<products><product><id>1</id><name>` + long + `</name></product></products>`))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 255, len([]rune(items[0].Name)))
}

func TestParse_Charset(t *testing.T) {
	// "Şeker" in ISO-8859-9.
	doc := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-9\"?><products><product><id>1</id><name>\xdeeker</name></product></products>")

	items, err := Parse(doc)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Şeker", items[0].Name)
}

func TestParse_Malformed(t *testing.T) {
	for _, input := range []string{
		``,
		`not xml at all`,
		`<products><product><id>1</id></products>`,
		`<products></products><products></products>`,
		`garbage<products><product><id>1</id><name>A</name></product></products>`,
		`<?xml version="1.0"?>oops<products></products>`,
	} {
		_, err := Parse([]byte(input))

		var parseErr *ParseError
		assert.ErrorAs(t, err, &parseErr, "input: %q", input)
	}
}

func TestParse_LeadingByteOrderMark(t *testing.T) {
	doc := append([]byte("\ufeff"), `<?xml version="1.0"?>
<products><product><id>1</id><name>A</name></product></products>`...)

	items, err := Parse(doc)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestParse_Deterministic(t *testing.T) {
	doc := []byte(`<products><product><id>1</id><name>A</name></product><product><id>2</id><name>B</name></product></products>`)

	first, err := Parse(doc)
	require.NoError(t, err)
	second, err := Parse(doc)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
