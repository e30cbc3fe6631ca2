package querymeta

// Record is a single query row as supplied by the ingestion layer.
type Record struct {
	QueryText     string `json:"query_text"`
	Tables        string `json:"tables"`
	SelectColumns string `json:"select_columns"`
	JoinColumns   string `json:"join_columns"`
	WhereColumns  string `json:"where_columns"`
	AggColumns    string `json:"agg_columns"`
}

// ColumnFields returns the four column-reference fields in a fixed order.
func (r Record) ColumnFields() []string {
	return []string{r.SelectColumns, r.JoinColumns, r.WhereColumns, r.AggColumns}
}
