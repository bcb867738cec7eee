package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assettrack/backend/internal/apperr"
)

func TestAuthMeReturnsPrincipal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/me", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]interface{}{"id": 7, "roles": []string{"inventory_auditor"}})
	}))
	defer srv.Close()

	p, err := NewAuthClient(srv.URL).Me(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.ID)
	assert.True(t, p.HasRole("inventory_auditor"))
	assert.False(t, p.HasRole("system_admin"))
}

func TestAuthMeRejectionIsUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewAuthClient(srv.URL).Me(context.Background(), "bad")
	assert.Equal(t, "invalid_token", apperr.CodeOf(err))
	assert.Equal(t, http.StatusUnauthorized, apperr.HTTPStatus(err))
}

func TestAuthMeBadBodyIsUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 0}`))
	}))
	defer srv.Close()

	_, err := NewAuthClient(srv.URL).Me(context.Background(), "tok")
	assert.Equal(t, "invalid_token", apperr.CodeOf(err))
}

func TestAuthMeTransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	_, err := NewAuthClient(srv.URL).Me(context.Background(), "tok")
	assert.Equal(t, "auth_service_unavailable", apperr.CodeOf(err))
	assert.Equal(t, http.StatusServiceUnavailable, apperr.HTTPStatus(err))
}

func TestAssertRoomAccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/rooms/my/1" {
			w.Write([]byte(`{"id": 1}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewLocationClient(srv.URL)
	assert.NoError(t, c.AssertRoomAccess(context.Background(), "tok", 1))

	err := c.AssertRoomAccess(context.Background(), "tok", 2)
	assert.Equal(t, "room_forbidden", apperr.CodeOf(err))
	assert.Equal(t, http.StatusForbidden, apperr.HTTPStatus(err))
}

func TestResolveByBarcode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/items/resolve", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch body["barcode_value"] {
		case "4006381333931":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id": 10, "location_id": 1, "responsible_id": nil, "barcode_id": 3,
			})
		case "unknown":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer srv.Close()

	c := NewInventoryClient(srv.URL)
	ctx := context.Background()

	item, err := c.ResolveByBarcode(ctx, "tok", "4006381333931")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, int64(10), *item.ID)
	assert.Equal(t, int64(1), *item.LocationID)
	assert.Nil(t, item.ResponsibleID)
	assert.Equal(t, int64(3), *item.BarcodeID)

	// 404 means "no match", not an error.
	item, err = c.ResolveByBarcode(ctx, "tok", "unknown")
	require.NoError(t, err)
	assert.Nil(t, item)

	_, err = c.ResolveByBarcode(ctx, "tok", "forbidden")
	assert.Equal(t, "inventory_forbidden", apperr.CodeOf(err))
}

func TestListItemsByRoomSkipsNonIntegralIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/items/room/4", r.URL.Path)
		w.Write([]byte(`[
			{"id": 10, "location_id": 4},
			{"id": "not-a-number", "location_id": 4},
			{"id": 11.5, "location_id": 4}
		]`))
	}))
	defer srv.Close()

	items, err := NewInventoryClient(srv.URL).ListItemsByRoom(context.Background(), "tok", 4)
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.NotNil(t, items[0].ID)
	assert.Equal(t, int64(10), *items[0].ID)
	assert.Nil(t, items[1].ID)
	assert.Nil(t, items[2].ID)
}

func TestBulkMoveResponsibleFieldTriState(t *testing.T) {
	var bodies []map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		w.Write([]byte(`{"moved": 1}`))
	}))
	defer srv.Close()

	c := NewInventoryClient(srv.URL)
	ctx := context.Background()
	resp := int64(42)

	require.NoError(t, c.BulkMove(ctx, "tok", []int64{1}, 5, false, nil))
	require.NoError(t, c.BulkMove(ctx, "tok", []int64{1}, 5, true, nil))
	require.NoError(t, c.BulkMove(ctx, "tok", []int64{1}, 5, true, &resp))

	require.Len(t, bodies, 3)
	_, present := bodies[0]["responsible_id"]
	assert.False(t, present, "unset responsible must not be sent")
	raw, present := bodies[1]["responsible_id"]
	assert.True(t, present)
	assert.Equal(t, "null", string(raw))
	raw = bodies[2]["responsible_id"]
	assert.Equal(t, "42", string(raw))
}

func TestBulkMoveUnknownLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	err := NewInventoryClient(srv.URL).BulkMove(context.Background(), "tok", []int64{1}, 99, false, nil)
	assert.Equal(t, "location_not_found", apperr.CodeOf(err))
}

func TestNotificationClientBlankTokenIsNoop(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewNotificationClient(srv.URL, "  ")
	err := c.Send(context.Background(), Notification{UserIDs: []int64{1}, Type: "x"})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestNotificationClientSendsInternalToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/internal/notifications", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Internal-Token"))
		var n Notification
		require.NoError(t, json.NewDecoder(r.Body).Decode(&n))
		assert.Equal(t, "audit", n.SourceService)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewNotificationClient(srv.URL, "secret")
	err := c.Send(context.Background(), Notification{
		UserIDs:       []int64{1, 2},
		Type:          "audit_session_closed",
		SourceService: "audit",
	})
	require.NoError(t, err)
}

func TestNotificationClientReportsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewNotificationClient(srv.URL, "secret").Send(context.Background(), Notification{UserIDs: []int64{1}})
	assert.Error(t, err)
}
