package types

// NEROutput is one concept recognized in a text by the NER model.
type NEROutput struct {
	// CUI is the UMLS Concept Unique Identifier of the match.
	CUI string `json:"cui" yaml:"cui"`

	// Entity is the span of source text that matched the concept.
	Entity string `json:"entity" yaml:"entity"`

	// Score is the match score between 0.0 and 1.0.
	Score float64 `json:"score" yaml:"score"`
}

// IndexedNER ties NER output back to the position of its input text in a batch.
type IndexedNER struct {
	Index   int         `json:"index" yaml:"index"`
	Outputs []NEROutput `json:"outputs" yaml:"outputs"`
}

// NERRequest is the request body accepted by the NER endpoints.
type NERRequest struct {
	Text string `json:"text"`

	// TerminalNode optionally restricts results to concepts at or below this
	// SNOMED CT identifier.
	TerminalNode string `json:"terminal_node,omitempty"`
}

// MMIRecord is one line of MetaMap fielded MMI output:
//
//	id|MMI|score|preferred name|CUI|[semtypes]|[triggers]|location|positional info|tree codes
type MMIRecord struct {
	ID            string   `json:"id" yaml:"id"`
	Score         float64  `json:"score" yaml:"score"`
	PreferredName string   `json:"preferred_name" yaml:"preferred_name"`
	CUI           string   `json:"cui" yaml:"cui"`
	SemanticTypes []string `json:"semantic_types" yaml:"semantic_types"`
	Triggers      string   `json:"triggers" yaml:"triggers"`
	Location      string   `json:"location" yaml:"location"`
	Positions     string   `json:"positions" yaml:"positions"`
	TreeCodes     []string `json:"tree_codes,omitempty" yaml:"tree_codes,omitempty"`
}
