package constants

// Order status
const ORDER_STATUS_PENDING = "pending"
const ORDER_STATUS_COMPLETED = "completed"
const ORDER_STATUS_FAILED = "failed"

// Payment providers
const PROVIDER_STRIPE = "stripe"
const PROVIDER_PAYPAL = "paypal"
const PROVIDER_DODO = "dodo"

// Checkout metadata user id recorded for anonymous buyers
const GUEST_USER_SENTINEL = "guest"

// Error responses
const UNKNOWN_TIER = "unknown tier"
const UNKNOWN_PROVIDER = "unknown provider"
const PAYMENT_NOT_SUCCEEDED = "payment not succeeded"
const MISSING_PAYMENT_REFERENCE = "payment_id or session_id is required"
const ORDER_NOT_FOUND = "order not found"
const CREATE_CHECKOUT_FAILED = "create checkout session failed"
const SAVE_ORDER_FAILED = "save order failed"
const RATE_LIMIT_EXCEEDED = "too many requests"
const UNAUTHENTICATED = "authentication required"
const ADMIN_ONLY = "admin access required"
