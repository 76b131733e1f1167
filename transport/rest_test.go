package transport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akrylov/sagalab/events"
	"github.com/akrylov/sagalab/orders"
	"github.com/akrylov/sagalab/saga"
	"github.com/akrylov/sagalab/simulators"
	"github.com/akrylov/sagalab/store"
)

type serverFixture struct {
	router    *gin.Engine
	inventory *simulators.Inventory
	payment   *simulators.Payment
	registry  *store.MemoryStore
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	bus := events.NewInMemoryEventBus()
	registry := store.NewMemoryStore()
	inventory := simulators.NewInventory(map[string]int{"prod_123": 10})
	payment := simulators.NewPayment()
	shipping := simulators.NewShipping()

	orchestrator := saga.NewOrchestrator(bus, registry)
	orchestration := orders.NewOrchestrationService(orchestrator, inventory, payment, shipping)
	choreography := orders.NewChoreographyService(bus, registry, inventory, payment, shipping)
	require.NoError(t, choreography.Register())
	t.Cleanup(func() {
		_ = choreography.Close()
	})

	config := DefaultRESTConfig()
	config.EnableMetrics = false
	server := NewServer(config, orchestration, choreography, registry, inventory)

	return &serverFixture{
		router:    server.Router(),
		inventory: inventory,
		payment:   payment,
		registry:  registry,
	}
}

func (f *serverFixture) post(t *testing.T, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, req)
	return recorder
}

func (f *serverFixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, req)
	return recorder
}

func validOrderBody() map[string]interface{} {
	return map[string]interface{}{
		"userId": "user-1",
		"items": []map[string]interface{}{
			{"productId": "prod_123", "quantity": 2, "price": 50},
		},
	}
}

func TestServer_Orchestration_Success(t *testing.T) {
	f := newServerFixture(t)

	recorder := f.post(t, "/concepts/saga/orders/orchestration", validOrderBody())
	require.Equal(t, http.StatusCreated, recorder.Code)

	var response struct {
		Order orders.Order `json:"order"`
		Saga  struct {
			Success        bool     `json:"success"`
			SagaID         string   `json:"sagaId"`
			Status         string   `json:"status"`
			CompletedSteps []string `json:"completedSteps"`
		} `json:"saga"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))

	assert.True(t, response.Saga.Success)
	assert.Equal(t, "completed", response.Saga.Status)
	assert.Equal(t,
		[]string{orders.StepInventoryReserved, orders.StepPaymentProcessed, orders.StepOrderShipped},
		response.Saga.CompletedSteps)
	assert.Equal(t, "user-1", response.Order.UserID)
	assert.Equal(t, 8, f.inventory.Available("prod_123"))
}

func TestServer_Orchestration_BusinessFailureStill201(t *testing.T) {
	f := newServerFixture(t)
	f.payment.WithFailureDecider(simulators.AlwaysFail(simulators.ErrPaymentDeclined))

	recorder := f.post(t, "/concepts/saga/orders/orchestration", validOrderBody())
	// Бизнес-сбой саги - не ошибка HTTP
	require.Equal(t, http.StatusCreated, recorder.Code)

	var response struct {
		Saga struct {
			Success    bool   `json:"success"`
			FailedStep string `json:"failedStep"`
			Error      string `json:"error"`
		} `json:"saga"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))

	assert.False(t, response.Saga.Success)
	assert.Equal(t, orders.StepPaymentProcessed, response.Saga.FailedStep)
	assert.Contains(t, response.Saga.Error, "payment declined")
}

func TestServer_Orchestration_ValidationError(t *testing.T) {
	f := newServerFixture(t)

	recorder := f.post(t, "/concepts/saga/orders/orchestration", map[string]interface{}{
		"items": []map[string]interface{}{},
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestServer_Choreography_FireAndForget(t *testing.T) {
	f := newServerFixture(t)

	recorder := f.post(t, "/concepts/saga/orders/choreography", validOrderBody())
	require.Equal(t, http.StatusCreated, recorder.Code)

	var response struct {
		SagaID  string `json:"sagaId"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	require.NotEmpty(t, response.SagaID)
	assert.Contains(t, response.Message, response.SagaID)

	// Сага дойдет до конца асинхронно
	require.Eventually(t, func() bool {
		statusRecorder := f.get(t, "/concepts/saga/status/"+response.SagaID)
		if statusRecorder.Code != http.StatusOK {
			return false
		}
		var record store.Record
		if err := json.Unmarshal(statusRecorder.Body.Bytes(), &record); err != nil {
			return false
		}
		return record.Status == "completed"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestServer_Status_NotFound(t *testing.T) {
	f := newServerFixture(t)

	recorder := f.get(t, "/concepts/saga/status/unknown-saga")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestServer_ListSagas(t *testing.T) {
	f := newServerFixture(t)

	// Пустой реестр отдает пустой массив, а не null
	recorder := f.get(t, "/concepts/saga/sagas")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, "[]", recorder.Body.String())

	f.post(t, "/concepts/saga/orders/orchestration", validOrderBody())

	recorder = f.get(t, "/concepts/saga/sagas")
	require.Equal(t, http.StatusOK, recorder.Code)

	var records []store.Record
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &records))
	assert.Len(t, records, 1)
}

func TestServer_InventorySnapshot(t *testing.T) {
	f := newServerFixture(t)

	recorder := f.get(t, "/concepts/saga/inventory")
	require.Equal(t, http.StatusOK, recorder.Code)

	var snapshot map[string]int
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &snapshot))
	assert.Equal(t, 10, snapshot["prod_123"])
}

func TestServer_Health(t *testing.T) {
	f := newServerFixture(t)

	recorder := f.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, recorder.Code)
}
