package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"subextract/internal/logging"
	"subextract/internal/messaging"
	"subextract/internal/workflow"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleSubmit(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}
	ref, err := s.videoRef(c)
	if err != nil {
		return err
	}

	job, err := s.jobs.Submit(c.UserContext(), workflow.Submission{
		VideoRef: ref,
		OwnerID:  owner,
		TargetID: targetID(c, owner),
	})
	if err != nil {
		return err
	}
	status := workflow.StatusFromJob(job)
	return c.Status(fiber.StatusAccepted).JSON(SubmitResponse{
		JobID:   status.ID,
		ShortID: status.ShortID,
		Status:  string(status.Status),
	})
}

// videoRef resolves the submitted video: a multipart "file" part is stored
// in the inbox, otherwise the JSON body must name a video_url that is an
// http(s) URL or an earlier upload.
func (s *Server) videoRef(c *fiber.Ctx) (string, error) {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		header, err := c.FormFile("file")
		if err != nil {
			return "", fiber.NewError(fiber.StatusBadRequest, "multipart field \"file\" is required")
		}
		file, err := header.Open()
		if err != nil {
			return "", fmt.Errorf("open upload: %w", err)
		}
		defer file.Close()
		return s.events.StoreUpload(file, header.Filename)
	}

	var req SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	ref := strings.TrimSpace(req.VideoURL)
	if ref == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, "video_url is required")
	}
	parsed, err := messaging.ParseRef(ref)
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	// Local paths are for the CLI on the daemon's own host only.
	if parsed.Kind == messaging.RefFile {
		return "", fiber.NewError(fiber.StatusBadRequest, "video_url must be an http(s) URL or an upload reference")
	}
	return ref, nil
}

func (s *Server) handleListJobs(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}
	statuses, err := s.jobs.Status(c.UserContext(), owner, c.Query("prefix"))
	if err != nil {
		return err
	}
	return c.JSON(JobListResponse{Jobs: statuses})
}

func (s *Server) handleCancel(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}
	report, err := s.jobs.Cancel(c.UserContext(), owner, c.Query("prefix"))
	if err != nil {
		return err
	}
	return c.JSON(report)
}

func (s *Server) handleCommand(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}
	var req CommandRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	ctx := c.UserContext()
	reply := s.commands.Handle(ctx, owner, req.Text)
	if err := s.events.Reply(ctx, targetID(c, owner), reply); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "command reply not recorded", "command_reply_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "reply missing from the event log"),
		)
	}
	return c.JSON(CommandResponse{Reply: reply})
}

func (s *Server) handleEvents(c *fiber.Ctx) error {
	since, err := parseSeq(c.Query("since", "0"))
	if err != nil {
		return err
	}
	events := s.events.Events(c.Params("target"), since)
	next := since
	if len(events) > 0 {
		next = events[len(events)-1].Seq
	}
	if events == nil {
		events = []messaging.Event{}
	}
	return c.JSON(EventsResponse{Events: events, Next: next})
}

func (s *Server) handleDocument(c *fiber.Ctx) error {
	seq, err := parseSeq(c.Params("seq"))
	if err != nil {
		return err
	}
	ev, ok := s.events.Document(c.Params("target"), seq)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "document not found")
	}
	c.Attachment(ev.Filename)
	c.Set(fiber.HeaderContentType, "application/x-subrip; charset=utf-8")
	return c.Send(ev.Data)
}

// handleStream sends the retained backlog then live events until the
// client disconnects.
func (s *Server) handleStream(conn *websocket.Conn) {
	target := conn.Params("target")
	since, err := parseSeq(conn.Query("since", "0"))
	if err != nil {
		_ = conn.WriteJSON(ErrorResponse{Error: "invalid since"})
		_ = conn.Close()
		return
	}

	// Subscribe before reading the backlog so nothing falls between them.
	live, cancel := s.events.Subscribe(target)
	defer cancel()

	last := since
	for _, ev := range s.events.Events(target, since) {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
		last = ev.Seq
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case ev, ok := <-live:
			if !ok {
				return
			}
			if ev.Seq <= last {
				continue
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				s.logger.Warn("encode event failed", logging.Error(err))
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
			last = ev.Seq
		}
	}
}

func parseSeq(raw string) (uint64, error) {
	seq, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid sequence number")
	}
	return seq, nil
}
