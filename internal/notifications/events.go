package notifications

import (
	"context"
	"encoding/json"
	"log"

	"accessdesk/internal/models"
	"accessdesk/internal/observability"
	"accessdesk/internal/repository"
)

// Event is the envelope delivered to WebSocket clients.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// RequestEventPayload summarizes a request in an event.
type RequestEventPayload struct {
	RequestID     uint                   `json:"request_id"`
	RequestNumber string                 `json:"request_number"`
	Status        models.RequestStatus   `json:"status"`
	RequestType   models.RequestType     `json:"request_type"`
	Priority      models.RequestPriority `json:"priority"`
	TargetName    string                 `json:"target_name"`
	ActorID       uint                   `json:"actor_id,omitempty"`
	Action        string                 `json:"action,omitempty"`
}

// EventPublisher routes request lifecycle events to the people who care:
// new requests go to the department's approvers, decisions go back to the
// requester. Delivery is best effort; failures are logged and dropped.
type EventPublisher struct {
	notifier    *Notifier
	departments repository.DepartmentRepository
}

// NewEventPublisher returns a new EventPublisher.
func NewEventPublisher(notifier *Notifier, departments repository.DepartmentRepository) *EventPublisher {
	return &EventPublisher{notifier: notifier, departments: departments}
}

func requestPayload(req *models.AccessRequest) RequestEventPayload {
	return RequestEventPayload{
		RequestID:     req.ID,
		RequestNumber: req.RequestNumber,
		Status:        req.Status,
		RequestType:   req.RequestType,
		Priority:      req.Priority,
		TargetName:    req.FullName(),
	}
}

// RequestCreated notifies every approver of the requester's department that a
// new request awaits review.
func (p *EventPublisher) RequestCreated(ctx context.Context, req *models.AccessRequest) {
	payload := requestPayload(req)
	data, err := json.Marshal(Event{Type: "request_created", Payload: payload})
	if err != nil {
		log.Printf("marshal request_created event: %v", err)
		return
	}
	observability.WebSocketEventsTotal.WithLabelValues("request_created").Inc()

	if req.RequesterDepartmentID == nil {
		return
	}
	members, err := p.departments.ListMembers(ctx, *req.RequesterDepartmentID)
	if err != nil {
		log.Printf("resolve approvers for request %s: %v", req.RequestNumber, err)
		return
	}
	for _, m := range members {
		if !m.IsActive || !m.Role.CanApprove() || m.UserID == req.RequesterID {
			continue
		}
		if err := p.notifier.PublishUser(ctx, m.UserID, string(data)); err != nil {
			log.Printf("publish request_created to user %d: %v", m.UserID, err)
		}
	}
}

// RequestTransitioned notifies the requester that their request moved.
func (p *EventPublisher) RequestTransitioned(ctx context.Context, req *models.AccessRequest, action models.ApprovalAction, actorID uint) {
	payload := requestPayload(req)
	payload.ActorID = actorID
	payload.Action = string(action)

	data, err := json.Marshal(Event{Type: "request_transitioned", Payload: payload})
	if err != nil {
		log.Printf("marshal request_transitioned event: %v", err)
		return
	}
	observability.WebSocketEventsTotal.WithLabelValues("request_transitioned").Inc()

	if req.RequesterID != actorID {
		if err := p.notifier.PublishUser(ctx, req.RequesterID, string(data)); err != nil {
			log.Printf("publish request_transitioned to user %d: %v", req.RequesterID, err)
		}
	}

	// Approvals feed the fulfillment queue, which admins watch on a
	// broadcast channel.
	if action == models.ApprovalActionApproved {
		if err := p.notifier.PublishBroadcast(ctx, string(data)); err != nil {
			log.Printf("publish fulfillment broadcast: %v", err)
		}
	}
}
