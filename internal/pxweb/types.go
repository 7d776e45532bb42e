// Package pxweb implements a client for PxWeb-style statistical catalog APIs.
package pxweb

// Node types returned by catalog listings.
const (
	NodeTypeBranch = "l" // navigable folder node
	NodeTypeTable  = "t" // queryable table leaf
)

// Column types returned in query responses.
const (
	ColumnTypeDimension = "d" // categorical key column
	ColumnTypeContent   = "c" // measured value column
	ColumnTypeTime      = "t" // time key column
)

// NavItem is one entry in a catalog folder listing.
type NavItem struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}

// Variable describes one categorical dimension of a table.
type Variable struct {
	Code       string   `json:"code"`
	Text       string   `json:"text"`
	ValueTexts []string `json:"valueTexts"`
}

// TableMeta is the metadata of a queryable table: its title and dimensions.
type TableMeta struct {
	Title     string     `json:"title"`
	Variables []Variable `json:"variables"`
}

// Column is one column descriptor in a query response.
type Column struct {
	Code string `json:"code"`
	Text string `json:"text"`
	Type string `json:"type"`
}

// DataPoint is one cross-tabulated row: the key tuple followed by the value tuple.
type DataPoint struct {
	Key    []string `json:"key"`
	Values []string `json:"values"`
}

// TableData is one raw query response payload.
type TableData struct {
	Columns []Column    `json:"columns"`
	Data    []DataPoint `json:"data"`
}

// IsTable reports whether the nav item resolves to queryable tabular data.
func (n NavItem) IsTable() bool {
	return n.Type == NodeTypeTable
}

// IsBranch reports whether the nav item is a navigable folder.
func (n NavItem) IsBranch() bool {
	return n.Type == NodeTypeBranch
}
