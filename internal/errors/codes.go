package errors

// 에러 코드 상수 정의
// 형식: CATEGORY_SPECIFIC_DETAIL
// 관리자/고객 화면에서 이 코드를 기준으로 다음 조치를 결정함

const (
	// ==================== 인증 (AUTH_) ====================
	AuthUnauthorized = "AUTH_UNAUTHORIZED"  // 로그인 필요
	AuthTokenExpired = "AUTH_TOKEN_EXPIRED" // 토큰 만료
	AuthTokenInvalid = "AUTH_TOKEN_INVALID" // 잘못된 토큰

	// ==================== 인가/권한 (AUTHZ_) ====================
	AuthzForbidden    = "AUTHZ_FORBIDDEN"      // 접근 권한 없음
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND" // 권한 정보 없음

	// ==================== 검증 (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT" // 잘못된 입력
	ValidationInvalidID    = "VALIDATION_INVALID_ID"    // 잘못된 ID
	ValidationRequired     = "VALIDATION_REQUIRED"      // 필수 항목

	// ==================== 리소스 (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"      // 리소스 없음
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS" // 이미 존재
	ResourceConflict      = "RESOURCE_CONFLICT"       // 동시 수정 충돌

	// ==================== 주문 (ORDER_) ====================
	OrderNotFound          = "ORDER_NOT_FOUND"            // 주문 없음
	OrderInvalidStatus     = "ORDER_INVALID_STATUS"       // 알 수 없는 상태 값
	OrderInvalidTransition = "ORDER_INVALID_TRANSITION"   // 허용되지 않는 상태 전환
	OrderClosed            = "ORDER_CLOSED"               // 종료된 주문
	OrderInvalidItems      = "ORDER_INVALID_ITEMS"        // 주문 항목 오류
	OrderInvalidDelivery   = "ORDER_INVALID_DELIVERY"     // 배송 정보 오류
	OrderOutOfDeliveryArea = "ORDER_OUT_OF_DELIVERY_AREA" // 배달 불가 지역
	OrderCreditLimit       = "ORDER_CREDIT_LIMIT"         // 외상 한도 초과
	OrderCreditAccount     = "ORDER_CREDIT_ACCOUNT"       // 외상 계정 없음

	// ==================== 환불 (REFUND_) ====================
	RefundAlreadyRequested = "REFUND_ALREADY_REQUESTED"  // 처리 대기/승인된 요청 존재
	RefundAlreadyProcessed = "REFUND_ALREADY_PROCESSED"  // 이미 환불 처리됨
	RefundInvalidAmount    = "REFUND_INVALID_AMOUNT"     // 환불 금액 오류
	RefundInvalidItems     = "REFUND_INVALID_ITEMS"      // 잘못된 상품 선택
	RefundNoPendingRequest = "REFUND_NO_PENDING_REQUEST" // 처리할 요청 없음
	RefundInvalidDecision  = "REFUND_INVALID_DECISION"   // approve/reject 외 값

	// ==================== 대체 상품 (REPLACEMENT_) ====================
	ReplacementPending        = "REPLACEMENT_PENDING"         // 고객 확인 대기 중인 제안 존재
	ReplacementNotPending     = "REPLACEMENT_NOT_PENDING"     // 확인할 제안 없음
	ReplacementAlreadyApplied = "REPLACEMENT_ALREADY_APPLIED" // 이미 적용된 대체
	ReplacementInvalidTotal   = "REPLACEMENT_INVALID_TOTAL"   // 금액 오류
	ReplacementInvalidItems   = "REPLACEMENT_INVALID_ITEMS"   // 잘못된 상품 선택

	// ==================== 장보기 목록 (SHOPPING_LIST_) ====================
	ShoppingListNotFound      = "SHOPPING_LIST_NOT_FOUND"      // 목록 없음
	ShoppingListInvalidStatus = "SHOPPING_LIST_INVALID_STATUS" // 현재 상태에서 불가
	ShoppingListEmpty         = "SHOPPING_LIST_EMPTY"          // 내용/사진 없음

	// ==================== 요청 제한 (RATE_) ====================
	RateLimited = "RATE_LIMITED" // 요청 과다

	// ==================== 내부 오류 (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"   // 서버 오류
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR" // DB 오류
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"   // 외부 API 오류
)
