package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	config "github.com/anjiri1684/flower_farm/configs"
	"github.com/sirupsen/logrus"
)

const paymentLinksPath = "/v2/online-checkout/payment-links"

var ErrMissingPaymentURL = errors.New("square response did not contain a payment url")

type PaymentLinkRequest struct {
	IdempotencyKey string
	ItemName       string
	Quantity       int
	UnitAmount     int64 // minor currency units
	Currency       string
	Note           string
	RedirectURL    string
	BuyerEmail     string
}

type PaymentLink struct {
	ID      string
	URL     string
	OrderID string
}

type SquareClient struct {
	baseURL     string
	accessToken string
	apiVersion  string
	locationID  string
	httpClient  *http.Client
}

func NewSquareClient(cfg config.SquareConfig) *SquareClient {
	return &SquareClient{
		baseURL:     strings.TrimRight(cfg.APIBase(), "/"),
		accessToken: cfg.AccessToken,
		apiVersion:  cfg.APIVersion,
		locationID:  cfg.LocationID,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

type squareMoney struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type squareLineItem struct {
	Name           string      `json:"name"`
	Quantity       string      `json:"quantity"`
	BasePriceMoney squareMoney `json:"base_price_money"`
	Note           string      `json:"note,omitempty"`
}

type squarePaymentLinkRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	Order          struct {
		LocationID string           `json:"location_id"`
		LineItems  []squareLineItem `json:"line_items"`
	} `json:"order"`
	CheckoutOptions *struct {
		RedirectURL string `json:"redirect_url,omitempty"`
	} `json:"checkout_options,omitempty"`
	PrePopulatedData *struct {
		BuyerEmail string `json:"buyer_email,omitempty"`
	} `json:"pre_populated_data,omitempty"`
	PaymentNote string `json:"payment_note,omitempty"`
}

type squareIDRef struct {
	ID string `json:"id"`
}

// squarePaymentLinkResponse covers the shapes returned across API versions; see extractPaymentLink.
type squarePaymentLinkResponse struct {
	PaymentLink *struct {
		ID      string `json:"id"`
		URL     string `json:"url"`
		LongURL string `json:"long_url"`
		OrderID string `json:"order_id"`
	} `json:"payment_link"`
	RelatedResources *struct {
		Orders []squareIDRef `json:"orders"`
	} `json:"related_resources"`
	Checkout *struct {
		ID              string       `json:"id"`
		CheckoutPageURL string       `json:"checkout_page_url"`
		Order           *squareIDRef `json:"order"`
	} `json:"checkout"`
	Errors []struct {
		Category string `json:"category"`
		Code     string `json:"code"`
		Detail   string `json:"detail"`
	} `json:"errors"`
}

func (c *SquareClient) CreatePaymentLink(ctx context.Context, r PaymentLinkRequest) (*PaymentLink, error) {
	payload := squarePaymentLinkRequest{IdempotencyKey: r.IdempotencyKey, PaymentNote: r.Note}
	payload.Order.LocationID = c.locationID
	payload.Order.LineItems = []squareLineItem{{
		Name:           r.ItemName,
		Quantity:       strconv.Itoa(r.Quantity),
		BasePriceMoney: squareMoney{Amount: r.UnitAmount, Currency: r.Currency},
	}}
	if r.RedirectURL != "" {
		payload.CheckoutOptions = &struct {
			RedirectURL string `json:"redirect_url,omitempty"`
		}{RedirectURL: r.RedirectURL}
	}
	if r.BuyerEmail != "" {
		payload.PrePopulatedData = &struct {
			BuyerEmail string `json:"buyer_email,omitempty"`
		}{BuyerEmail: r.BuyerEmail}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment link payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+paymentLinksPath, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create payment link request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Square-Version", c.apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send payment link request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read payment link response: %w", err)
	}

	var parsed squarePaymentLinkResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment link response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || len(parsed.Errors) > 0 {
		details := make([]string, 0, len(parsed.Errors))
		for _, e := range parsed.Errors {
			details = append(details, fmt.Sprintf("%s/%s: %s", e.Category, e.Code, e.Detail))
		}
		logrus.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"errors": details,
		}).Error("🔥 Square API error")
		return nil, fmt.Errorf("square returned status %d: %s", resp.StatusCode, strings.Join(details, "; "))
	}

	link := extractPaymentLink(parsed)
	if link.URL == "" {
		return nil, ErrMissingPaymentURL
	}
	return &link, nil
}

// extractPaymentLink pulls the URL and order id from whichever field the API version populated.
func extractPaymentLink(r squarePaymentLinkResponse) PaymentLink {
	var link PaymentLink
	if pl := r.PaymentLink; pl != nil {
		link.ID = pl.ID
		link.URL = firstNonEmpty(pl.URL, pl.LongURL)
		link.OrderID = pl.OrderID
	}
	if link.OrderID == "" && r.RelatedResources != nil && len(r.RelatedResources.Orders) > 0 {
		link.OrderID = r.RelatedResources.Orders[0].ID
	}
	if co := r.Checkout; co != nil {
		if link.ID == "" {
			link.ID = co.ID
		}
		if link.URL == "" {
			link.URL = co.CheckoutPageURL
		}
		if link.OrderID == "" && co.Order != nil {
			link.OrderID = co.Order.ID
		}
	}
	return link
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
