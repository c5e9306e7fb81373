package payment

import "encoding/json"

const onePayCheckoutPath = "/request-payment-link/"

type onePayCreateRequest struct {
	AppID                  string      `json:"app_id"`
	Hash                   string      `json:"hash"`
	Amount                 json.Number `json:"amount"`
	Currency               string      `json:"currency"`
	Reference              string      `json:"reference"`
	CustomerFirstName      string      `json:"customer_first_name"`
	CustomerLastName       string      `json:"customer_last_name"`
	CustomerPhoneNumber    string      `json:"customer_phone_number"`
	CustomerEmail          string      `json:"customer_email"`
	TransactionRedirectURL string      `json:"transaction_redirect_url"`
	AdditionalData         string      `json:"additional_data,omitempty"`
}

type onePayCreateResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    struct {
		IPGTransactionID string `json:"ipg_transaction_id"`
		Gateway          struct {
			RedirectURL string `json:"redirect_url"`
		} `json:"gateway"`
	} `json:"data"`
}

type onePayNotification struct {
	TransactionID  string      `json:"transaction_id"`
	Reference      string      `json:"reference"`
	Status         int         `json:"status"`
	StatusMessage  string      `json:"status_message"`
	Amount         json.Number `json:"amount"`
	Currency       string      `json:"currency"`
	AdditionalData string      `json:"additional_data"`
}
