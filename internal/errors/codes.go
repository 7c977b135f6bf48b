package errors

// 에러 코드 상수 정의
// 형식: CATEGORY_SPECIFIC_DETAIL
// 프론트엔드에서 이 코드를 기반으로 메시지를 매핑함

const (
	// ==================== 인증 (AUTH_) ====================
	AuthUnauthorized = "AUTH_UNAUTHORIZED"  // 로그인 필요
	AuthTokenInvalid = "AUTH_TOKEN_INVALID" // 잘못된 토큰

	// ==================== 인가/권한 (AUTHZ_) ====================
	AuthzForbidden = "AUTHZ_FORBIDDEN"  // 접근 권한 없음
	AuthzAdminOnly = "AUTHZ_ADMIN_ONLY" // 관리자만 가능

	// ==================== 검증 (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"  // 잘못된 입력
	ValidationInvalidID     = "VALIDATION_INVALID_ID"     // 잘못된 ID
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT" // 잘못된 형식
	ValidationInvalidRange  = "VALIDATION_INVALID_RANGE"  // 범위 초과
	ValidationRequired      = "VALIDATION_REQUIRED"       // 필수 항목

	// ==================== 리소스 (RESOURCE_) ====================
	ResourceNotFound = "RESOURCE_NOT_FOUND" // 리소스 없음
	ResourceConflict = "RESOURCE_CONFLICT"  // 충돌

	// ==================== 세션 (SESSION_) ====================
	SessionMissing = "SESSION_MISSING" // 장바구니 세션 없음

	// ==================== 장바구니 (CART_) ====================
	CartLineNotFound    = "CART_LINE_NOT_FOUND"   // 장바구니 항목 없음
	CartInvalidQuantity = "CART_INVALID_QUANTITY" // 잘못된 수량
	CartPersistWarning  = "CART_PERSIST_WARNING"  // 저장 실패 (새로고침 시 유실 가능)
	CartLoadFailed      = "CART_LOAD_FAILED"      // 장바구니 불러오기 실패
	CartNothingToOrder  = "CART_NOTHING_TO_ORDER" // 주문할 상품 없음

	// ==================== 재고 (STOCK_) ====================
	StockInsufficient = "STOCK_INSUFFICIENT" // 재고 부족
	StockUnavailable  = "STOCK_UNAVAILABLE"  // 재고 확인 불가
	StockConflict     = "STOCK_CONFLICT"     // 재고 변동으로 수량 초과

	// ==================== 결제 (PAYMENT_) ====================
	PaymentMethodUnsupported = "PAYMENT_METHOD_UNSUPPORTED" // 지원하지 않는 결제수단
	PaymentInitiationFailed  = "PAYMENT_INITIATION_FAILED"  // 결제 시작 실패
	PaymentNotConfirmed      = "PAYMENT_NOT_CONFIRMED"      // 결제 미확인

	// ==================== 업로드 (UPLOAD_) ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE" // 잘못된 파일 형식
	UploadUnavailable     = "UPLOAD_UNAVAILABLE"       // 업로드 미설정
	UploadFailed          = "UPLOAD_FAILED"            // 업로드 실패

	// ==================== 내부 오류 (INTERNAL_) ====================
	InternalServerError = "INTERNAL_SERVER_ERROR" // 서버 오류
	InternalExternalAPI = "INTERNAL_EXTERNAL_API" // 외부 API 오류
)
