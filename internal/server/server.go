// Package server exposes the HTTP/WebSocket control surface: settings,
// vocabulary, replacement rules, history, status, and a live outcome feed.
package server

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/grandcat/zeroconf"

	"github.com/pttscribe/ptt-scribe/internal/history"
	"github.com/pttscribe/ptt-scribe/internal/replace"
	"github.com/pttscribe/ptt-scribe/internal/settings"
	"github.com/pttscribe/ptt-scribe/internal/vocab"
)

// StatusFunc supplies the live fields of the status endpoint: controller
// state and provider availability.
type StatusFunc func() (state string, providers map[string]bool)

// Server wires the stores into a Fiber app.
type Server struct {
	app      *fiber.App
	hub      *Hub
	settings *settings.Store
	vocab    *vocab.Store
	rules    *replace.Store
	history  *history.Store
	status   StatusFunc
	mdns     *zeroconf.Server
}

// New builds the app and its routes.
func New(st *settings.Store, vb *vocab.Store, rules *replace.Store, hist *history.Store, status StatusFunc) *Server {
	s := &Server{
		app:      fiber.New(fiber.Config{DisableStartupMessage: true}),
		hub:      NewHub(),
		settings: st,
		vocab:    vb,
		rules:    rules,
		history:  hist,
		status:   status,
	}
	s.routes()
	return s
}

// Hub returns the broadcast hub so the pipeline can publish outcomes.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) routes() {
	api := s.app.Group("/api")

	api.Get("/status", s.getStatus)

	api.Get("/settings", s.getSettings)
	api.Post("/settings", s.postSetting)

	api.Get("/vocabulary", s.getVocabulary)
	api.Post("/vocabulary", s.postVocabulary)
	api.Delete("/vocabulary/:term", s.deleteVocabulary)

	api.Get("/replacements", s.getReplacements)
	api.Post("/replacements", s.postReplacement)
	api.Delete("/replacements/:from", s.deleteReplacement)

	api.Get("/history", s.getHistory)
	api.Delete("/history/:index", s.deleteHistoryEntry)
	api.Delete("/history", s.clearHistory)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		s.hub.serve(conn)
	}))
}

func (s *Server) getStatus(c *fiber.Ctx) error {
	state, providers := s.status()
	return c.JSON(fiber.Map{
		"state":     state,
		"providers": providers,
		"observers": s.hub.ClientCount(),
	})
}

func (s *Server) getSettings(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"values": s.settings.All(),
		"schema": settings.Schema,
	})
}

func (s *Server) postSetting(c *fiber.Ctx) error {
	var req struct {
		Key   string `json:"key"`
		Value any    `json:"value"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	if req.Key == "" {
		return badRequest(c, "key is required")
	}
	if err := s.settings.Set(req.Key, req.Value); err != nil {
		return badRequest(c, err.Error())
	}
	s.hub.Broadcast("settings", s.settings.All())
	return c.JSON(fiber.Map{"values": s.settings.All()})
}

func (s *Server) getVocabulary(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"terms": s.vocab.Terms()})
}

func (s *Server) postVocabulary(c *fiber.Ctx) error {
	var req struct {
		Term string `json:"term"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	added, err := s.vocab.Add(req.Term)
	if err != nil {
		return badRequest(c, err.Error())
	}
	if added {
		s.hub.Broadcast("vocabulary", s.vocab.Terms())
	}
	return c.JSON(fiber.Map{"added": added, "terms": s.vocab.Terms()})
}

func (s *Server) deleteVocabulary(c *fiber.Ctx) error {
	removed, err := s.vocab.Remove(c.Params("term"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	if !removed {
		return notFound(c, "term not found")
	}
	s.hub.Broadcast("vocabulary", s.vocab.Terms())
	return c.JSON(fiber.Map{"terms": s.vocab.Terms()})
}

func (s *Server) getReplacements(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"replacements": s.rules.Rules()})
}

func (s *Server) postReplacement(c *fiber.Ctx) error {
	var req struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	if err := s.rules.Add(req.From, req.To); err != nil {
		return badRequest(c, err.Error())
	}
	s.hub.Broadcast("replacements", s.rules.Rules())
	return c.JSON(fiber.Map{"replacements": s.rules.Rules()})
}

func (s *Server) deleteReplacement(c *fiber.Ctx) error {
	removed, err := s.rules.Remove(c.Params("from"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	if !removed {
		return notFound(c, "rule not found")
	}
	s.hub.Broadcast("replacements", s.rules.Rules())
	return c.JSON(fiber.Map{"replacements": s.rules.Rules()})
}

func (s *Server) getHistory(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"history": s.history.All()})
}

func (s *Server) deleteHistoryEntry(c *fiber.Ctx) error {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return badRequest(c, "index must be an integer")
	}
	removed, err := s.history.Delete(index)
	if err != nil {
		return badRequest(c, err.Error())
	}
	if !removed {
		return notFound(c, "no entry at index")
	}
	return c.JSON(fiber.Map{"history": s.history.All()})
}

func (s *Server) clearHistory(c *fiber.Ctx) error {
	if err := s.history.Clear(); err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(fiber.Map{"history": s.history.All()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func notFound(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": msg})
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	slog.Info("[server] listening", "addr", addr)
	return s.app.Listen(addr)
}

// Announce advertises the server over mDNS so observers on the local
// network can discover it.
func (s *Server) Announce(instance string, port int) error {
	mdns, err := zeroconf.Register(instance, "_ptt-scribe._tcp", "local.", port, nil, nil)
	if err != nil {
		return fmt.Errorf("server: mdns register: %w", err)
	}
	s.mdns = mdns
	slog.Info("[server] mdns advertised", "instance", instance, "port", port)
	return nil
}

// Shutdown stops the listener and the mDNS announcement.
func (s *Server) Shutdown() error {
	if s.mdns != nil {
		s.mdns.Shutdown()
	}
	return s.app.Shutdown()
}
