// Package util 提供通用工具函数
package util

// StringPtr 返回字符串的指针，用于可选字段的赋值
func StringPtr(s string) *string {
	return &s
}

// IntPtr 返回 int 的指针
func IntPtr(i int) *int {
	return &i
}

// BoolPtr 返回 bool 的指针
func BoolPtr(b bool) *bool {
	return &b
}

// Float32Ptr 返回 float32 的指针
func Float32Ptr(f float32) *float32 {
	return &f
}
