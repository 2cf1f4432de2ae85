package model

type UserRole string // 사용자 권한 타입

const (
	RoleCustomer UserRole = "customer" // 일반 고객
	RoleBusiness UserRole = "business" // 사업자(외상) 고객
	RoleAdmin    UserRole = "admin"    // 관리자 권한
)

// IsStaff reports whether the role may drive fulfillment operations
func (r UserRole) IsStaff() bool {
	return r == RoleAdmin
}
