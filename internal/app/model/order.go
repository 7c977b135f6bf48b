package model

import (
	"time"
)

type OrderStatus string   // 주문 상태 코드
type PaymentStatus string // 결제 상태 코드

const (
	OrderStatusPending   OrderStatus = "pending"   // 주문 접수
	OrderStatusConfirmed OrderStatus = "confirmed" // 주문 확정
	OrderStatusShipping  OrderStatus = "shipping"  // 배송 중
	OrderStatusDelivered OrderStatus = "delivered" // 배송 완료
	OrderStatusCancelled OrderStatus = "cancelled" // 주문 취소

	PaymentStatusPending   PaymentStatus = "pending"   // 결제 대기
	PaymentStatusCompleted PaymentStatus = "completed" // 결제 완료
	PaymentStatusFailed    PaymentStatus = "failed"    // 결제 실패
	PaymentStatusRefunded  PaymentStatus = "refunded"  // 환불 완료
)

var orderStatuses = map[OrderStatus]bool{
	OrderStatusPending:   true,
	OrderStatusConfirmed: true,
	OrderStatusShipping:  true,
	OrderStatusDelivered: true,
	OrderStatusCancelled: true,
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	return orderStatuses[s]
}

// Order is the storefront API's view of a submitted order.
type Order struct {
	ID            string        `json:"_id"`
	Reference     string        `json:"reference"`
	Items         []OrderItem   `json:"items"`
	Customer      Customer      `json:"customer"`
	Total         Money         `json:"total"`
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	CreatedAt     time.Time     `json:"createdAt"`
}
