package pipeline

// Rows decodes raw tabular text and pairs each data line with the
// normalized header row. Input with no data lines yields no rows.
func Rows(text string) []RawRow {
	cells := Decode(text)
	if len(cells) < 2 {
		return nil
	}

	headers := make([]string, len(cells[0]))
	for i, h := range cells[0] {
		headers[i] = NormalizeHeader(h)
	}

	rows := make([]RawRow, 0, len(cells)-1)
	for _, fields := range cells[1:] {
		rows = append(rows, zipRow(headers, fields))
	}
	return rows
}

// ResolveAll resolves every row into a canonical record.
func ResolveAll(rows []RawRow) []ResolvedRecord {
	records := make([]ResolvedRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, ResolveRow(row))
	}
	return records
}

// Build runs the full pipeline over raw export text: decode, normalize,
// resolve, aggregate. The result depends only on the input text.
func Build(text string) []*RuleAggregate {
	return Aggregate(ResolveAll(Rows(text)))
}

// BuildRecords resolves the rows of raw export text without aggregating,
// for callers that persist individual alarm rows.
func BuildRecords(text string) []ResolvedRecord {
	return ResolveAll(Rows(text))
}

// BuildFromRecords runs the pipeline over already-tabular data, one
// key/value map per alarm, as delivered by upstream REST APIs. Keys are
// canonicalized with the same header normalization as decoded text, so a
// map record and its CSV rendering aggregate identically.
func BuildFromRecords(recs []map[string]string) []*RuleAggregate {
	rows := make([]RawRow, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, NormalizeRecord(rec))
	}
	return Aggregate(ResolveAll(rows))
}
