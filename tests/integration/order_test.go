//go:build integration

package integration

import (
	"bytes"
	"io"
	"net/http"
	"regexp"
	"testing"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func TestPlaceOrder_EmptyItems(t *testing.T) {
	req := orderRequest{
		CustomerName:  "Asha",
		CustomerPhone: "9876543210",
		Items:         []orderItemRequest{},
	}
	resp := doPost(t, "/api/order", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_MissingCustomer(t *testing.T) {
	menu := fetchMenu(t)
	req := orderRequest{
		Items: []orderItemRequest{{MenuItemID: menu["Margherita Pizza"].ID, Quantity: 1}},
	}
	resp := doPost(t, "/api/order", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_UnknownItem(t *testing.T) {
	req := orderRequest{
		CustomerName:  "Asha",
		CustomerPhone: "9876543210",
		Items:         []orderItemRequest{{MenuItemID: "00000000-0000-0000-0000-000000000000", Quantity: 1}},
	}
	resp := doPost(t, "/api/order", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_PricingPipeline(t *testing.T) {
	menu := fetchMenu(t)
	pizza, ok := menu["Margherita Pizza"]
	if !ok {
		t.Fatal("Margherita Pizza not in seeded menu")
	}

	// 2 x 250.00 = 500.00, minus 25.00 discount, plus 5% tax on 475.00.
	req := orderRequest{
		CustomerName:  "Asha",
		CustomerPhone: "9876543210",
		OrderType:     "Dine-In",
		Discount:      "25.00",
		Items:         []orderItemRequest{{MenuItemID: pizza.ID, Quantity: 2}},
	}
	resp := doPost(t, "/api/order", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}

	order := decodeJSON[orderResponse](t, resp)
	if !uuidPattern.MatchString(order.OrderID) {
		t.Errorf("order id: got %q, want a UUID", order.OrderID)
	}
	if order.Subtotal != "500.00" {
		t.Errorf("subtotal: got %s, want 500.00", order.Subtotal)
	}
	if order.Tax != "23.75" {
		t.Errorf("tax: got %s, want 23.75", order.Tax)
	}
	if order.Total != "498.75" {
		t.Errorf("total: got %s, want 498.75", order.Total)
	}
	if order.Status != "pending" {
		t.Errorf("status: got %s, want pending", order.Status)
	}
}

func TestPayOrder_FullFlow(t *testing.T) {
	menu := fetchMenu(t)
	req := orderRequest{
		CustomerName:  "Ravi",
		CustomerPhone: "9000000001",
		Items:         []orderItemRequest{{MenuItemID: menu["Masala Chai"].ID, Quantity: 3}},
	}
	createResp := doPost(t, "/api/order", req)
	order := decodeJSON[orderResponse](t, createResp)
	createResp.Body.Close()

	// Pay by card.
	payResp := doPost(t, "/api/order/"+order.OrderID+"/pay", paymentRequest{
		Method:     "Card",
		CardNumber: "4111111111111111",
	})
	defer payResp.Body.Close()

	if payResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(payResp.Body)
		t.Fatalf("expected 200, got %d: %s", payResp.StatusCode, body)
	}

	payment := decodeJSON[paymentResponse](t, payResp)
	if payment.Status != "paid" {
		t.Errorf("status: got %s, want paid", payment.Status)
	}

	// Paying again must conflict.
	payAgain := doPost(t, "/api/order/"+order.OrderID+"/pay", paymentRequest{Method: "Cash"})
	defer payAgain.Body.Close()
	if payAgain.StatusCode != http.StatusConflict {
		t.Fatalf("second payment: expected 409, got %d", payAgain.StatusCode)
	}

	// The stored order now carries the payment with masked card details.
	getResp := doGet(t, "/api/order/"+order.OrderID)
	defer getResp.Body.Close()
	stored := decodeJSON[orderResponse](t, getResp)
	if stored.Payment == nil {
		t.Fatal("stored order has no payment")
	}
	if stored.Payment.Details != "Card ending in 1111" {
		t.Errorf("payment details: got %q", stored.Payment.Details)
	}
}

func TestInvoiceDownload(t *testing.T) {
	menu := fetchMenu(t)
	req := orderRequest{
		CustomerName:  "Meera",
		CustomerPhone: "9000000002",
		Items:         []orderItemRequest{{MenuItemID: menu["Gulab Jamun"].ID, Quantity: 2}},
	}
	createResp := doPost(t, "/api/order", req)
	order := decodeJSON[orderResponse](t, createResp)
	createResp.Body.Close()

	payResp := doPost(t, "/api/order/"+order.OrderID+"/pay", paymentRequest{
		Method: "UPI",
		UpiID:  "meera@upi",
	})
	payment := decodeJSON[paymentResponse](t, payResp)
	payResp.Body.Close()

	resp := doGet(t, payment.InvoiceURL)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type: got %s, want application/pdf", ct)
	}
	wantDisposition := "attachment; filename=invoice_" + order.OrderID + ".pdf"
	if cd := resp.Header.Get("Content-Disposition"); cd != wantDisposition {
		t.Errorf("content disposition: got %q, want %q", cd, wantDisposition)
	}

	first, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !bytes.HasPrefix(first, []byte("%PDF-")) {
		t.Fatal("response is not a PDF")
	}

	// Downloading again yields the identical document.
	resp2 := doGet(t, payment.InvoiceURL)
	defer resp2.Body.Close()
	second, err := io.ReadAll(resp2.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("repeated invoice downloads differ")
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	resp := doGet(t, "/api/order/11111111-1111-1111-1111-111111111111")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
