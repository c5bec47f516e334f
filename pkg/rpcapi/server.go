package rpcapi

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cuemby/statekeep/pkg/app"
	"github.com/cuemby/statekeep/pkg/errs"
	"github.com/cuemby/statekeep/pkg/kv"
	"github.com/cuemby/statekeep/pkg/registry"
	"github.com/cuemby/statekeep/pkg/uploader"
)

// adminToken is the fixed constant RemoveApp checks the caller's token
// against. There is no token issuance flow — it is a shared secret
// baked into the binary.
const adminToken = "iknowwhatimdoing"

// Server implements StateManagerServer over a tenant registry. One
// Server exists per process; its runID makes every etag it issues
// specific to this run, per the etag protocol's cross-restart rule.
type Server struct {
	registry *registry.Registry
	runID    string
	log      zerolog.Logger

	snapshotUploader uploader.Backend
	snapshotPrefix   string
}

// New builds a Server with a fresh, process-scoped run id.
func New(reg *registry.Registry, log zerolog.Logger) (*Server, error) {
	runID, err := newRunID()
	if err != nil {
		return nil, errs.New(errs.Unknown, "rpcapi.New", err)
	}
	return &Server{registry: reg, runID: runID, log: log}, nil
}

// EnableSnapshotUpload arms post-checkpoint snapshot uploads: every
// successful CreateCheckpoint call triggers a best-effort
// Engine.StoreSnapshot to remotePrefix/<app id>. A failed upload is
// logged, never returned to the RPC caller — the checkpoint itself
// already succeeded.
func (s *Server) EnableSnapshotUpload(up uploader.Backend, remotePrefix string) {
	s.snapshotUploader = up
	s.snapshotPrefix = remotePrefix
}

func (s *Server) snapshotAfterCheckpoint(ctx context.Context, appID string, e *app.Engine) {
	if s.snapshotUploader == nil {
		return
	}
	prefix := fmt.Sprintf("%s/%s", s.snapshotPrefix, appID)
	if err := e.StoreSnapshot(ctx, s.snapshotUploader, prefix); err != nil {
		s.log.Error().Err(err).Str("app", appID).Msg("snapshot upload failed")
	}
}

func (s *Server) etagFor(e *app.Engine) string {
	return computeETag(s.runID, e.ModificationsNumber())
}

func (s *Server) checkPrecondition(e *app.Engine, etag string) error {
	want := s.etagFor(e)
	if etag != want {
		return errs.PreconditionFailedf("rpcapi", "etag mismatch: have %q want %q", etag, want)
	}
	return nil
}

func (s *Server) InitApp(ctx context.Context, req *InitAppRequest) (*InitAppResponse, error) {
	if err := s.registry.InitApp(ctx, req.AppID); err != nil {
		return nil, err
	}

	var resp InitAppResponse
	err := s.registry.WithApp(ctx, req.AppID, func(e *app.Engine) error {
		resp.ETag = s.etagFor(e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Server) Get(ctx context.Context, req *GetRequest) (*GetResponse, error) {
	var resp GetResponse
	err := s.registry.WithApp(ctx, req.AppID, func(e *app.Engine) error {
		values, err := e.Get(ctx, req.Keys)
		if err != nil {
			return err
		}
		resp.Values = toWireValues(values)
		resp.ETag = s.etagFor(e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Server) Set(ctx context.Context, req *SetRequest) (*SetResponse, error) {
	var resp SetResponse
	err := s.registry.WithApp(ctx, req.AppID, func(e *app.Engine) error {
		if err := s.checkPrecondition(e, req.ETag); err != nil {
			return err
		}
		if err := e.Set(ctx, fromWireValues(req.Parts)); err != nil {
			return err
		}
		resp.ETag = s.etagFor(e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Server) Checkpoints(ctx context.Context, req *CheckpointsRequest) (*CheckpointsResponse, error) {
	var resp CheckpointsResponse
	err := s.registry.WithApp(ctx, req.AppID, func(e *app.Engine) error {
		for _, cp := range e.Checkpoints() {
			resp.Checkpoints = append(resp.Checkpoints, Checkpoint{ID: cp.ID, Payload: cp.Payload})
		}
		resp.ETag = s.etagFor(e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Server) CreateCheckpoint(ctx context.Context, req *CreateCheckpointRequest) (*CreateCheckpointResponse, error) {
	var resp CreateCheckpointResponse
	err := s.registry.WithApp(ctx, req.AppID, func(e *app.Engine) error {
		if err := s.checkPrecondition(e, req.ETag); err != nil {
			return err
		}
		id, err := e.CreateCheckpoint(ctx, req.Payload)
		if err != nil {
			return err
		}
		resp.ID = id
		resp.ETag = s.etagFor(e)
		s.snapshotAfterCheckpoint(ctx, req.AppID, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Server) Revert(ctx context.Context, req *RevertRequest) (*RevertResponse, error) {
	var resp RevertResponse
	err := s.registry.WithApp(ctx, req.AppID, func(e *app.Engine) error {
		if err := s.checkPrecondition(e, req.ETag); err != nil {
			return err
		}
		if err := e.Revert(ctx, req.CheckpointID); err != nil {
			return err
		}
		resp.ETag = s.etagFor(e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Server) Cleanup(ctx context.Context, req *CleanupRequest) (*CleanupResponse, error) {
	var resp CleanupResponse
	err := s.registry.WithApp(ctx, req.AppID, func(e *app.Engine) error {
		if err := s.checkPrecondition(e, req.ETag); err != nil {
			return err
		}
		if err := e.Cleanup(ctx, req.UntilCheckpoint); err != nil {
			return err
		}
		resp.ETag = s.etagFor(e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Server) Reset(ctx context.Context, req *ResetRequest) (*ResetResponse, error) {
	var resp ResetResponse
	err := s.registry.WithApp(ctx, req.AppID, func(e *app.Engine) error {
		if err := s.checkPrecondition(e, req.ETag); err != nil {
			return err
		}
		if err := e.Reset(ctx); err != nil {
			return err
		}
		resp.ETag = s.etagFor(e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Server) RemoveApp(ctx context.Context, req *RemoveAppRequest) (*RemoveAppResponse, error) {
	if req.AdminToken != adminToken {
		return nil, errs.PermissionDeniedf("rpcapi.RemoveApp", "admin token mismatch")
	}
	if err := s.registry.DropApp(ctx, req.AppID); err != nil {
		return nil, err
	}
	return &RemoveAppResponse{}, nil
}

func toWireValues(values []kv.KeyValue) []KeyValue {
	out := make([]KeyValue, len(values))
	for i, v := range values {
		out[i] = KeyValue{Key: v.Key, Value: v.Value}
	}
	return out
}

func fromWireValues(values []KeyValue) []kv.KeyValue {
	out := make([]kv.KeyValue, len(values))
	for i, v := range values {
		out[i] = kv.KeyValue{Key: v.Key, Value: v.Value}
	}
	return out
}
