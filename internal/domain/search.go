package domain

type SortCriteria string

const (
	SortDefault  SortCriteria = "default"
	SortName     SortCriteria = "name"
	SortSizeB    SortCriteria = "size"
	SortUploaded SortCriteria = "date"
	SortSeeders  SortCriteria = "seeders"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

func NormalizeSortCriteria(raw string) SortCriteria {
	switch SortCriteria(raw) {
	case SortName:
		return SortName
	case SortSizeB:
		return SortSizeB
	case SortUploaded:
		return SortUploaded
	case SortSeeders:
		return SortSeeders
	default:
		return SortDefault
	}
}

func NormalizeSortOrder(raw string) SortOrder {
	switch SortOrder(raw) {
	case SortAsc:
		return SortAsc
	default:
		return SortDesc
	}
}

// SearchResults is one cumulative emission of a search round: everything
// gathered so far plus the providers that have already failed. The last
// emission of a round carries Final=true.
type SearchResults struct {
	Query     string            `json:"query"`
	Category  Category          `json:"category"`
	Torrents  []Torrent         `json:"torrents"`
	Failures  []ProviderFailure `json:"failures"`
	Pending   int               `json:"pending"`
	ElapsedMS int64             `json:"elapsedMs"`
	Final     bool              `json:"final"`
}
