package presenters

import (
	"time"

	"spconnect/application"
	"spconnect/domain/contracts"
)

// TriggerVM is the outcome of one trigger check.
type TriggerVM struct {
	Key      string `json:"key"`
	Fired    bool   `json:"fired"`
	RemoteAt string `json:"remote_modified_at"`
	StoredAt string `json:"stored_at,omitempty"`
}

// TriggerStateVM is a stored trigger value.
type TriggerStateVM struct {
	Key       string `json:"key"`
	Value     int64  `json:"value"`
	ValueAt   string `json:"value_at"`
	UpdatedAt string `json:"updated_at"`
}

// TriggerPresenter transforms trigger results into view models.
type TriggerPresenter struct{}

// NewTriggerPresenter creates a trigger presenter.
func NewTriggerPresenter() *TriggerPresenter {
	return &TriggerPresenter{}
}

// FromResult reports the stored value after the check: the new one when fired.
func (p *TriggerPresenter) FromResult(result *application.TriggerResult) TriggerVM {
	vm := TriggerVM{
		Key:      result.Key,
		Fired:    result.Fired,
		RemoteAt: formatMillis(result.Remote),
	}
	switch {
	case result.Fired:
		vm.StoredAt = formatMillis(result.Now)
	case result.IsSet:
		vm.StoredAt = formatMillis(result.Stored)
	}
	return vm
}

// FromStates converts stored trigger values.
func (p *TriggerPresenter) FromStates(states []*contracts.TriggerState) []TriggerStateVM {
	viewModels := make([]TriggerStateVM, len(states))
	for i, s := range states {
		viewModels[i] = TriggerStateVM{
			Key:       s.Key,
			Value:     s.Value,
			ValueAt:   formatMillis(s.Value),
			UpdatedAt: s.UpdatedAt.UTC().Format(time.RFC3339),
		}
	}
	return viewModels
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
