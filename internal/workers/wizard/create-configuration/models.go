package createconfiguration

// Input carries the answers gathered by the wizard, keyed by catalog field.
type Input struct {
	CollectedData map[string]interface{} `json:"collectedData"`
	ClientEmail   string                 `json:"clientEmail,omitempty"`
	ClientName    string                 `json:"clientName,omitempty"`
	ClientCompany string                 `json:"clientCompany,omitempty"`
	CreatedBy     string                 `json:"createdBy,omitempty"`
}

type Output struct {
	ConfigurationID  string  `json:"configurationId"`
	Status           string  `json:"status"`
	TotalFirstMonth  float64 `json:"totalFirstMonth"`
	MonthlyRecurring float64 `json:"monthlyRecurring"`
	CreatedAt        string  `json:"createdAt"`
}
