package payments

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	config "github.com/kevinmwangi/nyumbani/configs"
)

// GatewayError carries the provider's own description of an auth or push
// failure back to the initiating caller.
type GatewayError struct {
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error: %s", e.Message)
}

type STKPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            string `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Gateway is the push-payment provider seen by the orchestrator. The concrete
// client talks to the Daraja API; tests substitute a mock.
type Gateway interface {
	InitiateSTKPush(phone string, amount float64, accountReference, description string) (*STKPushResponse, error)
}

// Client is the live M-Pesa Daraja client. Tokens are short-lived and are
// fetched fresh for every push request rather than cached.
type Client struct {
	AuthURL        string
	STKPushURL     string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	PassKey        string
	CallbackURL    string
	HTTPClient     *http.Client
}

func NewClientFromEnv() *Client {
	return &Client{
		AuthURL:        config.Config("MPESA_AUTH_URL"),
		STKPushURL:     config.Config("MPESA_STK_PUSH_URL"),
		ConsumerKey:    config.Config("MPESA_CONSUMER_KEY"),
		ConsumerSecret: config.Config("MPESA_CONSUMER_SECRET"),
		ShortCode:      config.Config("MPESA_SHORT_CODE"),
		PassKey:        config.Config("MPESA_PASS_KEY"),
		CallbackURL:    config.Config("WEBHOOK_BASE_URL") + "/api/v1/payments/mpesa/callback",
		HTTPClient:     &http.Client{Timeout: 10 * time.Second},
	}
}

// GetAccessToken exchanges the consumer credentials for a short-lived bearer
// token.
func (c *Client) GetAccessToken() (string, error) {
	req, err := http.NewRequest("GET", c.AuthURL+"?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.ConsumerKey, c.ConsumerSecret)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", &GatewayError{Message: fmt.Sprintf("token request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &GatewayError{Message: fmt.Sprintf("token API returned non-200 status: %s", resp.Status)}
	}

	var tokenResp tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", &GatewayError{Message: fmt.Sprintf("failed to decode token response: %v", err)}
	}
	if tokenResp.AccessToken == "" {
		return "", &GatewayError{Message: "token API returned an empty access token"}
	}

	return tokenResp.AccessToken, nil
}

// InitiateSTKPush submits a push-payment request against the subscriber's
// device. Acceptance of the initiation (ResponseCode "0") is not payment
// success; the outcome arrives later on the callback URL.
func (c *Client) InitiateSTKPush(phone string, amount float64, accountReference, description string) (*STKPushResponse, error) {
	accessToken, err := c.GetAccessToken()
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString([]byte(c.ShortCode + c.PassKey + timestamp))

	payload := STKPushRequest{
		BusinessShortCode: c.ShortCode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            strconv.FormatFloat(amount, 'f', 0, 64),
		PartyA:            phone,
		PartyB:            c.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.CallbackURL,
		AccountReference:  accountReference,
		TransactionDesc:   description,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal STK payload: %v", err)
	}

	req, err := http.NewRequest("POST", c.STKPushURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create STK request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &GatewayError{Message: fmt.Sprintf("failed to send STK request: %v", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GatewayError{Message: fmt.Sprintf("failed to read STK response body: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("M-Pesa API Error: %s", string(respBody))
		return nil, &GatewayError{Message: fmt.Sprintf("STK push API returned non-200 status: %d", resp.StatusCode)}
	}

	var stkResponse STKPushResponse
	if err := json.Unmarshal(respBody, &stkResponse); err != nil {
		return nil, &GatewayError{Message: fmt.Sprintf("failed to unmarshal STK response: %v", err)}
	}

	if stkResponse.ResponseCode != "0" {
		log.Printf("STK push initiation rejected: %s", stkResponse.ResponseDescription)
		return nil, &GatewayError{Message: stkResponse.ResponseDescription}
	}

	log.Println("✅ STK push initiated successfully, CheckoutRequestID:", stkResponse.CheckoutRequestID)
	return &stkResponse, nil
}
