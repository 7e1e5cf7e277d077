package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sort"
	"sync"

	"subextract/internal/daemon"
	"subextract/internal/logging"
	"subextract/internal/queue"
	"subextract/internal/workflow"
)

// serviceName prefixes every RPC method.
const serviceName = "Subextract"

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		listener.Close()
		return nil, fmt.Errorf("restrict socket permissions: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: serverCtx}
	if err := rpcServer.RegisterName(serviceName, srv); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
		conns:     make(map[net.Conn]struct{}),
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "CLI commands may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.track(conn, true)
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				defer s.track(c, false)
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

func (s *Server) track(conn net.Conn, add bool) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

// Close stops the server, drops connected clients and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.connMu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.connMu.Unlock()
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Submit(req SubmitRequest, resp *SubmitResponse) error {
	job, err := s.daemon.Submit(s.ctx, workflow.Submission{
		VideoRef: req.VideoRef,
		OwnerID:  req.OwnerID,
		TargetID: req.TargetID,
	})
	if err != nil {
		return err
	}
	resp.Job = workflow.StatusFromJob(job)
	return nil
}

func (s *service) Status(req JobStatusRequest, resp *JobStatusResponse) error {
	jobs, err := s.daemon.JobStatus(s.ctx, req.OwnerID, req.Prefix)
	if err != nil {
		return err
	}
	resp.Jobs = jobs
	return nil
}

func (s *service) Cancel(req CancelRequest, resp *CancelResponse) error {
	report, err := s.daemon.Cancel(s.ctx, req.OwnerID, req.Prefix)
	if err != nil {
		return err
	}
	resp.Report = report
	s.logger.Info("cancel requested via IPC",
		logging.String(logging.FieldEventType, "ipc_cancel"),
		logging.String(logging.FieldOwnerID, req.OwnerID),
		logging.String("prefix", req.Prefix),
		logging.Int("matched", len(report.Outcomes)),
	)
	return nil
}

func (s *service) List(req ListRequest, resp *ListResponse) error {
	statuses := make([]queue.Status, 0, len(req.Statuses))
	for _, raw := range req.Statuses {
		parsed, ok := queue.ParseStatus(raw)
		if !ok {
			return fmt.Errorf("unknown status %q", raw)
		}
		statuses = append(statuses, parsed)
	}
	jobs, err := s.daemon.ListJobs(s.ctx, statuses)
	if err != nil {
		return err
	}
	resp.Jobs = jobs
	return nil
}

func (s *service) Stats(_ StatsRequest, resp *StatsResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.Workers = status.Workflow.Workers
	resp.InFlight = status.Workflow.InFlight
	resp.LastError = status.Workflow.LastError
	resp.LockPath = status.LockFilePath
	resp.QueueDBPath = status.QueueDBPath
	resp.GatewayAddr = status.GatewayAddr
	resp.Dependencies = status.Dependencies

	resp.QueueStats = make(map[string]int, len(queue.AllStatuses()))
	for _, st := range queue.AllStatuses() {
		resp.QueueStats[string(st)] = status.Workflow.QueueStats[st]
	}
	if status.Workflow.LastJob != nil {
		last := workflow.StatusFromJob(status.Workflow.LastJob)
		resp.LastJob = &last
	}
	sort.SliceStable(resp.Dependencies, func(i, j int) bool {
		return resp.Dependencies[i].Name < resp.Dependencies[j].Name
	})
	return nil
}

func (s *service) Health(_ HealthRequest, resp *HealthResponse) error {
	health, err := s.daemon.DatabaseHealth(s.ctx)
	resp.DBPath = health.DBPath
	resp.DatabaseExists = health.DatabaseExists
	resp.Readable = health.Readable
	resp.IntegrityOK = health.IntegrityOK
	resp.TotalJobs = health.TotalJobs
	resp.Error = health.Error
	if err != nil && resp.Error == "" {
		resp.Error = err.Error()
	}
	return nil
}

// Stop replies before shutting down so the caller sees the acknowledgement.
func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Info("daemon stop requested via IPC",
		logging.String(logging.FieldEventType, "daemon_stop_requested"))
	go s.daemon.Shutdown()
	resp.Stopped = true
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
