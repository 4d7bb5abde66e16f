package handlers

import (
	"encoding/json"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/config"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/internal/notify"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/internal/workflow"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/models"
)

func feedClientFor(hub *Hub, viewer *models.User) *FeedClient {
	client := &FeedClient{
		hub:     hub,
		send:    make(chan []byte, 4),
		userID:  viewer.ID,
		reactor: notify.NewReactor(hub.engine, viewer),
	}
	hub.clients[viewer.ID] = client
	return client
}

func TestDispatchFansOutToEveryRelevantClient(t *testing.T) {
	engine := workflow.NewEngine(config.DefaultWorkflowPolicy())
	hub := NewHub(engine)

	requester := &models.User{Model: gorm.Model{ID: 5}, Role: models.RoleStaf}
	validator := &models.User{Model: gorm.Model{ID: 10}, Role: models.RoleValidatorTU}
	bystander := &models.User{Model: gorm.Model{ID: 11}, Role: models.RoleStaf}

	requesterClient := feedClientFor(hub, requester)
	validatorClient := feedClientFor(hub, validator)
	bystanderClient := feedClientFor(hub, bystander)

	oldReq := models.BudgetRequest{
		Model:       gorm.Model{ID: 1, UpdatedAt: time.Now()},
		Title:       "Rapat Koordinasi",
		Status:      models.StatusReviewedBidang,
		UserID:      5,
		Departments: models.DepartmentList{"Bidang Wilayah I"},
	}
	newReq := oldReq
	newReq.Status = models.StatusReviewedProgram

	hub.dispatch(notify.ChangeEvent{
		Table: "budget_requests",
		Type:  "UPDATE",
		Old:   &oldReq,
		New:   &newReq,
	})

	// Both the requester and the next-gate validator must receive the
	// event, however the clients map iterates.
	for name, client := range map[string]*FeedClient{
		"requester": requesterClient,
		"validator": validatorClient,
	} {
		select {
		case data := <-client.send:
			var msg FeedMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("%s received invalid message: %v", name, err)
			}
			if msg.Type != "toast" || msg.Payload == nil || msg.Payload.RequestID != 1 {
				t.Errorf("%s message = %+v", name, msg)
			}
		default:
			t.Errorf("%s received no message", name)
		}
	}

	select {
	case <-bystanderClient.send:
		t.Error("bystander should not receive the event")
	default:
	}
}
