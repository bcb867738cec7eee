package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/assettrack/backend/internal/apperr"
	"github.com/assettrack/backend/internal/circuitbreaker"
)

// Item is the loosely-typed item object the inventory service returns.
// Fields that are absent, null or non-integral decode to nil.
type Item struct {
	ID            *int64
	LocationID    *int64
	ResponsibleID *int64
	BarcodeID     *int64
}

// InventoryClient reads and mutates the inventory collaborator. Reads use a
// 10 s timeout; bulk-move gets 20 s because the inventory side locks and
// updates every affected item row in one transaction.
type InventoryClient struct {
	baseURL  string
	read     *http.Client
	bulkMove *http.Client
	breaker  *circuitbreaker.Breaker
}

func NewInventoryClient(baseURL string) *InventoryClient {
	return &InventoryClient{
		baseURL:  baseURL,
		read:     &http.Client{Timeout: 10 * time.Second},
		bulkMove: &http.Client{Timeout: 20 * time.Second},
		breaker:  circuitbreaker.New(circuitbreaker.DefaultConfig("inventory")),
	}
}

// ResolveByBarcode asks the inventory service to match a scanned barcode.
// A 404 means "no such item" and returns (nil, nil).
func (c *InventoryClient) ResolveByBarcode(ctx context.Context, token, barcodeValue string) (*Item, error) {
	var item *Item
	var callErr error
	err := execute(ctx, c.breaker, "inventory_service_unavailable", func(ctx context.Context) error {
		req, err := newJSONRequest(ctx, http.MethodPost, c.baseURL+"/items/resolve", token,
			map[string]string{"barcode_value": barcodeValue})
		if err != nil {
			return err
		}
		resp, err := c.read.Do(req)
		if err != nil {
			return apperr.Wrap(apperr.KindUpstreamUnavailable, "inventory_service_unavailable", err)
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
		case http.StatusForbidden:
			callErr = apperr.Forbidden("inventory_forbidden")
			return nil
		case http.StatusNotFound:
			return nil
		default:
			callErr = apperr.Upstream("inventory_service_error")
			return nil
		}

		obj, err := decodeObject(resp.Body)
		if err != nil {
			callErr = apperr.Upstream("inventory_service_invalid_response")
			return nil
		}
		item = itemFromObject(obj)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if callErr != nil {
		return nil, callErr
	}
	return item, nil
}

// ListItemsByRoom returns the current contents of a room.
func (c *InventoryClient) ListItemsByRoom(ctx context.Context, token string, roomID int64) ([]Item, error) {
	var items []Item
	var callErr error
	err := execute(ctx, c.breaker, "inventory_service_unavailable", func(ctx context.Context) error {
		url := fmt.Sprintf("%s/items/room/%d", c.baseURL, roomID)
		req, err := newJSONRequest(ctx, http.MethodGet, url, token, nil)
		if err != nil {
			return err
		}
		resp, err := c.read.Do(req)
		if err != nil {
			return apperr.Wrap(apperr.KindUpstreamUnavailable, "inventory_service_unavailable", err)
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
		case http.StatusForbidden:
			callErr = apperr.Forbidden("room_forbidden")
			return nil
		default:
			callErr = apperr.Upstream("inventory_service_error")
			return nil
		}

		dec := json.NewDecoder(resp.Body)
		dec.UseNumber()
		var raw []map[string]interface{}
		if err := dec.Decode(&raw); err != nil {
			callErr = apperr.Upstream("inventory_service_invalid_response")
			return nil
		}
		for _, obj := range raw {
			items = append(items, *itemFromObject(obj))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if callErr != nil {
		return nil, callErr
	}
	return items, nil
}

// BulkMove applies one move group atomically on the inventory side. The
// responsible_id field is only sent when explicitly set; a set-but-null
// responsible clears the assignment.
func (c *InventoryClient) BulkMove(ctx context.Context, token string, itemIDs []int64, locationID int64, responsibleIDIsSet bool, responsibleID *int64) error {
	body := map[string]interface{}{
		"item_ids":    itemIDs,
		"location_id": locationID,
	}
	if responsibleIDIsSet {
		body["responsible_id"] = responsibleID
	}

	var callErr error
	err := execute(ctx, c.breaker, "inventory_service_unavailable", func(ctx context.Context) error {
		req, err := newJSONRequest(ctx, http.MethodPost, c.baseURL+"/items/bulk-move", token, body)
		if err != nil {
			return err
		}
		resp, err := c.bulkMove.Do(req)
		if err != nil {
			return apperr.Wrap(apperr.KindUpstreamUnavailable, "inventory_service_unavailable", err)
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
		case http.StatusForbidden:
			callErr = apperr.Forbidden("inventory_forbidden")
			return nil
		case http.StatusNotFound:
			callErr = apperr.NotFound("location_not_found")
			return nil
		default:
			callErr = apperr.Upstream("inventory_service_error")
			return nil
		}
		if _, err := decodeObject(resp.Body); err != nil {
			callErr = apperr.Upstream("inventory_service_invalid_response")
		}
		return nil
	})
	if err != nil {
		return err
	}
	return callErr
}

func decodeObject(r io.Reader) (map[string]interface{}, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func itemFromObject(obj map[string]interface{}) *Item {
	return &Item{
		ID:            asInt64(obj["id"]),
		LocationID:    asInt64(obj["location_id"]),
		ResponsibleID: asInt64(obj["responsible_id"]),
		BarcodeID:     asInt64(obj["barcode_id"]),
	}
}
