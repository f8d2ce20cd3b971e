package models

import "time"

// 用户角色
const (
	RoleElderly   = "elderly"
	RoleCaregiver = "caregiver"
	RoleDoctor    = "doctor"
)

type User struct {
	ID          string `gorm:"primaryKey;type:varchar(64)"`
	DisplayName string
	Role        string `gorm:"type:varchar(20);index"`
	Phone       string
	Email       string

	// 紧急联系人（看护者），越界告警的短信/邮件收件人
	ContactPhone string
	ContactEmail string

	// 安全区设置；Home 坐标在首个定位样本时固定
	HomeLatitude     *float64
	HomeLongitude    *float64
	SafeRadiusMeters float64
	AlertActive      bool `gorm:"default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Privileged reports whether the role may read other users' data.
func (u *User) Privileged() bool {
	return u.Role == RoleCaregiver || u.Role == RoleDoctor || u.Role == "admin"
}
