// Package query implements per-connection dispatch of line commands to
// Collection/DatabaseManager/PubSubManager methods, plus a small
// predicate engine in predicate.go for FIND's condition evaluation.
// AUTH, USE, SHOW DBS, DROP DATABASE, and HELP round out the command
// table on top of the per-collection data commands.
package query

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/PranavKndpl/FluxDB/internal/collection"
	"github.com/PranavKndpl/FluxDB/internal/database"
	fluxerrors "github.com/PranavKndpl/FluxDB/internal/errors"
	"github.com/PranavKndpl/FluxDB/internal/index"
	"github.com/PranavKndpl/FluxDB/internal/metrics"
	"github.com/PranavKndpl/FluxDB/internal/pubsub"
	"github.com/PranavKndpl/FluxDB/internal/value"

	"github.com/google/uuid"
)

// Session holds per-connection state — requires_auth, authenticated,
// and the active database — plus the collaborators every command
// dispatches through.
type Session struct {
	dbManager       *database.Manager
	pubsubManager   *pubsub.Manager
	metrics         *metrics.Metrics
	requirePassword string

	authenticated bool
	activeDBName  string
	activeDB      *collection.Collection

	subscriberID uuid.UUID
	subscriber   pubsub.Subscriber
}

// NewSession constructs a session bound to sub for delivering PUBLISH
// fan-out. requirePassword empty disables AUTH entirely. m may be nil,
// in which case command metrics are not recorded.
func NewSession(dbManager *database.Manager, pubsubManager *pubsub.Manager, m *metrics.Metrics, requirePassword string, sub pubsub.Subscriber) *Session {
	return &Session{
		dbManager:       dbManager,
		pubsubManager:   pubsubManager,
		metrics:         m,
		requirePassword: requirePassword,
		authenticated:   requirePassword == "",
		subscriberID:    uuid.New(),
		subscriber:      sub,
	}
}

// Close unsubscribes the session from every channel, called when the
// owning connection disconnects.
func (s *Session) Close() {
	s.pubsubManager.UnsubscribeAll(s.subscriberID)
}

// Process dispatches a single decoded line command and returns the
// response text, without a trailing newline (the transport appends the
// line terminator).
func (s *Session) Process(line string) string {
	command, rest := splitCommand(line)

	if s.requirePassword != "" && !s.authenticated && command != "AUTH" && command != "HELP" {
		return "ERROR AUTH_REQUIRED"
	}

	if s.metrics != nil && command != "" {
		s.metrics.ObserveCommand(command)
	}

	switch command {
	case "AUTH":
		return s.handleAuth(rest)
	case "USE":
		return s.handleUse(rest)
	case "SHOW":
		if strings.TrimSpace(rest) == "DBS" {
			return s.handleShowDBs()
		}
		return "ERROR UNKNOWN_COMMAND"
	case "DROP":
		keyword, name := splitCommand(rest)
		if keyword != "DATABASE" {
			return "ERROR UNKNOWN_COMMAND"
		}
		return s.handleDropDatabase(name)
	case "INSERT":
		return s.withDB(func() string { return s.handleInsert(rest) })
	case "FIND":
		return s.withDB(func() string { return s.handleFind(rest) })
	case "DELETE":
		return s.withDB(func() string { return s.handleDelete(rest) })
	case "UPDATE":
		return s.withDB(func() string { return s.handleUpdate(rest) })
	case "INDEX":
		return s.withDB(func() string { return s.handleIndex(rest) })
	case "GET":
		return s.withDB(func() string { return s.handleGet(rest) })
	case "CONFIG":
		return s.handleConfig(rest)
	case "STATS":
		return s.withDB(func() string { return s.handleStats() })
	case "EXPIRE":
		return s.withDB(func() string { return s.handleExpire(rest) })
	case "CHECKPOINT":
		return s.withDB(func() string {
			if err := s.activeDB.Checkpoint(); err != nil {
				return "ERROR " + err.Error()
			}
			if s.metrics != nil {
				s.metrics.RecordCheckpoint()
			}
			return "OK CHECKPOINT_COMPLETE"
		})
	case "FLUSHDB":
		return s.withDB(func() string {
			if err := s.activeDB.Clear(); err != nil {
				return "ERROR " + err.Error()
			}
			return "OK FLUSHED"
		})
	case "SUBSCRIBE":
		return s.handleSubscribe(rest)
	case "PUBLISH":
		return s.handlePublish(rest)
	case "HELP":
		return helpText
	default:
		return "ERROR UNKNOWN_COMMAND"
	}
}

// withDB requires an active database to be selected before running fn.
func (s *Session) withDB(fn func() string) string {
	if s.activeDB == nil {
		return "ERROR NO_DATABASE_SELECTED"
	}
	return fn()
}

func (s *Session) handleAuth(pw string) string {
	pw = strings.TrimSpace(pw)
	if s.requirePassword == "" {
		return "OK AUTHENTICATED"
	}
	if pw != s.requirePassword {
		return "ERROR WRONG_PASSWORD"
	}
	s.authenticated = true
	return "OK AUTHENTICATED"
}

func (s *Session) handleUse(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "ERROR INVALID_ARGS"
	}
	c, newly, err := s.dbManager.OpenOrCreate(name)
	if err != nil {
		return "ERROR " + err.Error()
	}
	s.activeDB = c
	s.activeDBName = name
	if newly {
		return fmt.Sprintf("OK SWITCHED_TO %s (NEW_DATABASE_CREATED)", name)
	}
	return fmt.Sprintf("OK SWITCHED_TO %s", name)
}

func (s *Session) handleShowDBs() string {
	names, err := s.dbManager.List()
	if err != nil {
		return "ERROR " + err.Error()
	}
	sort.Strings(names)
	body, _ := json.Marshal(names)
	return "OK " + string(body)
}

func (s *Session) handleDropDatabase(name string) string {
	name = strings.TrimSpace(name)
	if err := s.dbManager.Drop(name); err != nil {
		if err == fluxerrors.ErrDefaultProtected {
			return "ERROR DEFAULT_PROTECTED"
		}
		return "ERROR " + err.Error()
	}
	if name == s.activeDBName {
		s.activeDB = nil
		s.activeDBName = ""
	}
	return "OK DROPPED " + name
}

func (s *Session) handleInsert(rawJSON string) string {
	doc, err := parseDocument(rawJSON)
	if err != nil {
		return "ERROR " + parseErrorLabel(err)
	}
	id, err := s.activeDB.Insert(doc)
	if err != nil {
		return "ERROR " + insertErrorLabel(err)
	}
	return fmt.Sprintf("OK ID=%d", id)
}

func (s *Session) handleUpdate(args string) string {
	idStr, rawJSON, ok := splitIDAndJSON(args)
	if !ok {
		return "ERROR MISSING_JSON"
	}
	id, err := strconv.ParseUint(strings.TrimSpace(idStr), 10, 64)
	if err != nil {
		return "ERROR INVALID_FORMAT"
	}
	doc, err := parseDocument(rawJSON)
	if err != nil {
		return "ERROR " + parseErrorLabel(err)
	}
	if err := s.activeDB.Update(id, doc); err != nil {
		if err == fluxerrors.ErrNotFound {
			return "ERROR NOT_FOUND"
		}
		return "ERROR " + insertErrorLabel(err)
	}
	return "OK UPDATED"
}

func (s *Session) handleDelete(args string) string {
	id, err := strconv.ParseUint(strings.TrimSpace(args), 10, 64)
	if err != nil {
		return "ERROR INVALID_ID"
	}
	if err := s.activeDB.Remove(id); err != nil {
		return "ERROR NOT_FOUND"
	}
	return "OK DELETED"
}

func (s *Session) handleIndex(args string) string {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "ERROR INVALID_ARGS"
	}
	kind := index.Hash
	if len(fields) >= 2 {
		switch fields[1] {
		case "0":
			kind = index.Hash
		case "1":
			kind = index.Sorted
		default:
			return "ERROR INVALID_ARGS"
		}
	}
	s.activeDB.CreateIndex(fields[0], kind)
	return "OK INDEX_CREATED"
}

func (s *Session) handleGet(args string) string {
	args = strings.TrimSpace(args)
	if args == "" {
		return s.renderRows(s.activeDB.FindAll(func(value.Document) bool { return true }))
	}

	if dash := strings.IndexByte(args, '-'); dash >= 0 {
		start, err1 := strconv.ParseUint(args[:dash], 10, 64)
		end, err2 := strconv.ParseUint(args[dash+1:], 10, 64)
		if err1 != nil || err2 != nil || end < start {
			return "ERROR INVALID_RANGE"
		}
		var rows []string
		count := 0
		for id := start; id <= end; id++ {
			if doc, ok := s.activeDB.Get(id); ok {
				rows = append(rows, formatRow(id, doc))
				count++
			}
		}
		return joinLines(fmt.Sprintf("OK COUNT=%d", count), rows)
	}

	id, err := strconv.ParseUint(args, 10, 64)
	if err != nil {
		return "ERROR INVALID_ID"
	}
	doc, ok := s.activeDB.Get(id)
	if !ok {
		return "ERROR NOT_FOUND"
	}
	return "OK " + doc.ToValue().ToJSON()
}

func (s *Session) handleFind(rawJSON string) string {
	v, err := value.ParseJSON([]byte(rawJSON))
	if err != nil {
		return "ERROR " + parseErrorLabel(err)
	}
	obj, err := v.AsObject()
	if err != nil {
		return "ERROR " + parseErrorLabel(err)
	}
	query := value.Document(obj)
	if len(query) == 0 {
		return "ERROR EMPTY_QUERY"
	}

	var ids []uint64
	usedIndex := false

	if len(query) == 1 {
		var field string
		var constraint value.Value
		for k, c := range query {
			field, constraint = k, c
		}
		isRange := constraint.Kind() == value.KindObject
		if !isRange {
			ids = s.activeDB.Find(field, constraint)
			if len(ids) > 0 {
				usedIndex = true
			}
		}
		if !usedIndex {
			s.activeDB.ReportQueryMiss(field, isRange)
		}
	}

	if s.metrics != nil {
		if usedIndex {
			s.metrics.RecordQueryHit()
		} else {
			s.metrics.RecordQueryMiss()
		}
	}

	if !usedIndex {
		ids = s.activeDB.FindAll(func(doc value.Document) bool { return matches(doc, query) })
	}

	return s.renderRows(ids)
}

func (s *Session) renderRows(ids []uint64) string {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	rows := make([]string, 0, len(ids))
	for _, id := range ids {
		if doc, ok := s.activeDB.Get(id); ok {
			rows = append(rows, formatRow(id, doc))
		}
	}
	return joinLines(fmt.Sprintf("OK COUNT=%d", len(ids)), rows)
}

func (s *Session) handleStats() string {
	stats := s.activeDB.Stats()
	body, _ := json.Marshal(stats)
	return "OK " + string(body)
}

func (s *Session) handleExpire(args string) string {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return "ERROR INVALID_ARGS"
	}
	id, err1 := strconv.ParseUint(fields[0], 10, 64)
	seconds, err2 := strconv.ParseInt(fields[1], 10, 64)
	if err1 != nil || err2 != nil {
		return "ERROR INVALID_ARGS"
	}
	s.activeDB.Expire(id, seconds)
	return "OK TTL_SET"
}

func (s *Session) handleConfig(args string) string {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return "ERROR INVALID_ARGS"
	}
	param, raw := fields[0], fields[1]
	if raw != "0" && raw != "1" {
		return "ERROR INVALID_VALUE"
	}
	enabled := raw == "1"

	switch param {
	case "ADAPTIVE":
		return s.withDB(func() string {
			s.activeDB.SetAdaptive(enabled)
			return "OK CONFIG_UPDATED ADAPTIVE=" + onOff(enabled)
		})
	case "PUBSUB":
		s.pubsubManager.SetEnabled(enabled)
		return "OK CONFIG_UPDATED PUBSUB=" + onOff(enabled)
	default:
		return "ERROR UNKNOWN_CONFIG"
	}
}

func (s *Session) handleSubscribe(channel string) string {
	if !s.pubsubManager.Enabled() {
		return "ERROR PUBSUB_DISABLED"
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return "ERROR INVALID_ARGS"
	}
	s.pubsubManager.Subscribe(channel, s.subscriberID, s.subscriber)
	return "OK SUBSCRIBED_TO " + channel
}

func (s *Session) handlePublish(args string) string {
	if !s.pubsubManager.Enabled() {
		return "ERROR PUBSUB_DISABLED"
	}
	channel, message, ok := splitFirstSpace(args)
	if !ok {
		return "ERROR INVALID_ARGS"
	}
	count := s.pubsubManager.Publish(channel, message)
	if s.metrics != nil {
		s.metrics.RecordPublish(count)
	}
	return fmt.Sprintf("OK RECEIVERS=%d", count)
}

func onOff(enabled bool) string {
	if enabled {
		return "ON"
	}
	return "OFF"
}

const helpText = `OK COMMANDS
AUTH <password>
USE <db>
SHOW DBS
DROP DATABASE <name>
INSERT <json>
GET [<id>|<a>-<b>]
FIND <json>
UPDATE <id> <json>
DELETE <id>
INDEX <field> [0|1]
EXPIRE <id> <seconds>
CHECKPOINT
FLUSHDB
STATS
CONFIG ADAPTIVE|PUBSUB 0|1
SUBSCRIBE <channel>
PUBLISH <channel> <message>
HELP`
