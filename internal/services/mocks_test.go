package services

import (
	"context"
	"sort"

	"github.com/vvka-141/dlsync/pkg/dlsync"
)

type mockSource struct {
	scripts  []*dlsync.Script
	listErr  error
	manual   []dlsync.ScriptDependency
	written  []*dlsync.Script
	writeErr error
}

func (m *mockSource) ListScripts(_ context.Context) ([]*dlsync.Script, error) {
	return m.scripts, m.listErr
}

func (m *mockSource) WriteScripts(_ context.Context, scripts []*dlsync.Script) error {
	m.written = append(m.written, scripts...)
	return m.writeErr
}

func (m *mockSource) ReadManualDependencies(_ context.Context, _ []*dlsync.Script) ([]dlsync.ScriptDependency, error) {
	return m.manual, nil
}

type syncCall struct {
	changeType dlsync.ChangeType
	status     dlsync.Status
	message    string
	count      int64
}

type applyCall struct {
	id       string
	content  string
	hashOnly bool
}

type mockRepo struct {
	hashes     map[string]string
	stored     map[string]*dlsync.Script
	schemas    []string
	objects    map[string][]*dlsync.Script
	verifyFail map[string]bool
	verifyErr  map[string]error
	applyErr   error
	startErr   error

	applied    []applyCall
	rolledBack []string
	rollbacks  []string
	verified   []string
	configured []string
	deps       []dlsync.ScriptDependency
	syncs      []syncCall
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		hashes:     make(map[string]string),
		stored:     make(map[string]*dlsync.Script),
		objects:    make(map[string][]*dlsync.Script),
		verifyFail: make(map[string]bool),
		verifyErr:  make(map[string]error),
	}
}

func (m *mockRepo) LoadScriptHashes(_ context.Context) (map[string]string, error) {
	out := make(map[string]string, len(m.hashes))
	for k, v := range m.hashes {
		out[k] = v
	}
	return out, nil
}

func (m *mockRepo) IsDeployed(_ context.Context, s *dlsync.Script) (bool, error) {
	_, ok := m.hashes[s.ID()]
	return ok, nil
}

func (m *mockRepo) ApplyScript(_ context.Context, s *dlsync.Script, hashOnly bool) error {
	if m.applyErr != nil {
		return m.applyErr
	}
	m.applied = append(m.applied, applyCall{id: s.ID(), content: s.Content, hashOnly: hashOnly})
	m.hashes[s.ID()] = s.Hash()
	return nil
}

func (m *mockRepo) ApplyRollback(_ context.Context, s *dlsync.Script) error {
	m.rolledBack = append(m.rolledBack, s.ID())
	m.rollbacks = append(m.rollbacks, s.Migration.Rollback)
	delete(m.hashes, s.ID())
	return nil
}

func (m *mockRepo) RunVerify(_ context.Context, s *dlsync.Script) (bool, error) {
	m.verified = append(m.verified, s.ID())
	if err := m.verifyErr[s.ID()]; err != nil {
		return false, err
	}
	return !m.verifyFail[s.ID()], nil
}

func (m *mockRepo) GetMigrationScripts(_ context.Context, ids []string) ([]*dlsync.Script, error) {
	var out []*dlsync.Script
	for _, id := range ids {
		if s, ok := m.stored[id]; ok {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

func (m *mockRepo) ListSchemas(_ context.Context) ([]string, error) {
	return m.schemas, nil
}

func (m *mockRepo) ListObjectsInSchema(_ context.Context, schema string) ([]*dlsync.Script, error) {
	var out []*dlsync.Script
	for _, s := range m.objects[schema] {
		out = append(out, s.Clone())
	}
	return out, nil
}

func (m *mockRepo) AddConfig(_ context.Context, s *dlsync.Script) error {
	m.configured = append(m.configured, s.FullObjectName())
	s.Content += "\nINSERT INTO T VALUES (1);"
	return nil
}

func (m *mockRepo) InsertDependencies(_ context.Context, deps []dlsync.ScriptDependency) error {
	m.deps = deps
	return nil
}

func (m *mockRepo) RecordSyncStart(_ context.Context, changeType dlsync.ChangeType) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.syncs = append(m.syncs, syncCall{changeType: changeType, status: dlsync.StatusInProgress, message: string(changeType) + " started."})
	return nil
}

func (m *mockRepo) RecordSyncEnd(_ context.Context, changeType dlsync.ChangeType, status dlsync.Status, message string, count int64) error {
	m.syncs = append(m.syncs, syncCall{changeType: changeType, status: status, message: message, count: count})
	return nil
}

func (m *mockRepo) appliedIDs() []string {
	var ids []string
	for _, c := range m.applied {
		ids = append(ids, c.id)
	}
	return ids
}

type mockApprover struct {
	approved  bool
	err       error
	summaries []string
}

func (m *mockApprover) RequestApproval(_ context.Context, _ string, summary string) (bool, error) {
	m.summaries = append(m.summaries, summary)
	return m.approved, m.err
}
