package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"spconnect/domain/contracts"
	"spconnect/domain/sharepoint"
	"spconnect/infrastructure/spclient"
	"spconnect/logging"
)

// State key prefixes for the modification triggers.
const (
	FileTriggerKeyPrefix = "sharepoint-online-fs-trigger_"
	ListTriggerKeyPrefix = "sharepoint-online-list-trigger_"
)

// ErrItemNotFound is returned when the watched file or folder does not exist.
var ErrItemNotFound = errors.New("sharepoint item not found")

// TriggerResult reports one trigger check.
type TriggerResult struct {
	Key    string `json:"key"`
	Fired  bool   `json:"fired"`
	Remote int64  `json:"remote"`
	// Stored is the value held before the check; IsSet reports whether there was one.
	Stored int64 `json:"stored"`
	IsSet  bool  `json:"stored_was_set"`
	// Now is the value stored when the trigger fired, epoch ms.
	Now int64 `json:"stored_now,omitempty"`
}

// TriggerService checks files, folders and lists for modifications since the last fire.
type TriggerService struct {
	client spclient.SharePointClient
	states contracts.TriggerStateRepository
	logger *logging.Logger
	now    func() time.Time
}

// NewTriggerService creates a trigger service backed by states.
func NewTriggerService(client spclient.SharePointClient, states contracts.TriggerStateRepository, logger *logging.Logger) *TriggerService {
	if logger == nil {
		logger = logging.Default()
	}
	return &TriggerService{
		client: client,
		states: states,
		logger: logger.WithComponent("triggers"),
		now:    time.Now,
	}
}

// CheckFile fires when the file or folder at path changed since the last fire.
// Files take priority over folders of the same name.
func (s *TriggerService) CheckFile(ctx context.Context, path string) (*TriggerResult, error) {
	itemPath := "/" + strings.Trim(path, "/")
	parent, name := sharepoint.SplitPath(itemPath)
	parent = sharepoint.LNTPath(parent)

	var lastModified string
	files, err := s.client.GetFiles(ctx, parent)
	if err != nil && !errors.Is(err, spclient.ErrNotFound) {
		return nil, err
	}
	if file := sharepoint.FindFile(files, name); file != nil {
		lastModified = file.TimeLastModified
	} else {
		folders, err := s.client.GetFolders(ctx, parent)
		if err != nil && !errors.Is(err, spclient.ErrNotFound) {
			return nil, err
		}
		folder := sharepoint.FindFolder(folders, name)
		if folder == nil {
			return nil, fmt.Errorf("%w: %s", ErrItemNotFound, path)
		}
		lastModified = folder.TimeLastModified
	}

	remote, err := sharepoint.TimeLastModifiedToEpochMillis(lastModified)
	if err != nil {
		return nil, err
	}
	return s.evaluate(ctx, FileTriggerKeyPrefix+path, remote)
}

// CheckList fires when an item of the list changed since the last fire.
func (s *TriggerService) CheckList(ctx context.Context, listTitle string) (*TriggerResult, error) {
	remote, err := s.client.GetListLastModified(ctx, listTitle)
	if err != nil {
		return nil, err
	}
	return s.evaluate(ctx, ListTriggerKeyPrefix+listTitle, remote)
}

// evaluate fires when no state is stored or remote is newer, then stores the
// current time rather than the remote one.
func (s *TriggerService) evaluate(ctx context.Context, key string, remote int64) (*TriggerResult, error) {
	result := &TriggerResult{Key: key, Remote: remote}

	state, err := s.states.Get(ctx, key)
	switch {
	case errors.Is(err, contracts.ErrStateNotFound):
	case err != nil:
		return nil, err
	default:
		result.Stored = state.Value
		result.IsSet = true
	}

	s.logger.Info("Trigger check",
		"key", key,
		"last_local_time", result.Stored,
		"last_local", sharepoint.FormatEpochMillis(result.Stored),
		"remote_time", remote,
		"remote", sharepoint.FormatEpochMillis(remote))

	if result.IsSet && remote <= result.Stored {
		s.logger.Info("Remote item has not been modified", "key", key)
		return result, nil
	}

	result.Now = s.now().Unix() * 1000
	if err := s.states.Set(ctx, key, result.Now); err != nil {
		return nil, err
	}
	result.Fired = true
	s.logger.Info("Firing the trigger", "key", key, "remote_time", remote, "last_local_time", result.Stored)
	return result, nil
}

// States lists every stored trigger value.
func (s *TriggerService) States(ctx context.Context) ([]*contracts.TriggerState, error) {
	return s.states.List(ctx)
}

// Reset forgets the stored value of key so the next check fires.
func (s *TriggerService) Reset(ctx context.Context, key string) error {
	s.logger.Info("Resetting trigger state", "key", key)
	return s.states.Delete(ctx, key)
}
