//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is the outbound side of one live connection.
// Close must be safe to call more than once.
type EventSink interface {
	Consume(ctx context.Context, e event.Outbound) error
	Close()
}

type IRoomTable interface {
	Join(sessionID domain.SessionID, roomID domain.RoomID) bool
	Leave(sessionID domain.SessionID, roomID domain.RoomID)
	LeaveAll(sessionID domain.SessionID) []domain.RoomID
	MembersOf(roomID domain.RoomID) []domain.SessionID
	RoomsOf(sessionID domain.SessionID) []domain.RoomID
	Snapshot() map[domain.RoomID][]domain.SessionID
	Len() int
}

type ISessionRegistry interface {
	Register(sink EventSink) domain.SessionID
	Associate(sessionID domain.SessionID, identity domain.Identity) (bool, error)
	JoinRoom(sessionID domain.SessionID, roomID domain.RoomID) (bool, error)
	Release(sessionID domain.SessionID) bool
	Lookup(sessionID domain.SessionID) (domain.Session, bool)
	Sink(sessionID domain.SessionID) (EventSink, bool)
	Sessions() []domain.SessionID
	Count() int
	Identities() int
}

type IBroadcaster interface {
	Deliver(ctx context.Context, targets domain.Targets, evt event.Outbound, excluding *domain.SessionID) int
}

type IDispatcher interface {
	Dispatch(ctx context.Context, sessionID domain.SessionID, evt event.Inbound) error
}

// IRelay is the engine surface a transport needs.
type IRelay interface {
	Connect(sink EventSink) domain.SessionID
	Handle(ctx context.Context, sessionID domain.SessionID, frame []byte) error
	Disconnect(sessionID domain.SessionID) bool
}
