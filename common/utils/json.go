package utils

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/bytedance/sonic"
)

// 与 encoding/json 行为一致（map key 排序、HTML 转义），保证请求体可复现
var api = sonic.ConfigStd

// Marshal 将对象序列化为JSON字节数组
func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

// MarshalString 将对象序列化为JSON字符串
func MarshalString(v any) (string, error) {
	return api.MarshalToString(v)
}

// Unmarshal 将JSON字节数组解析到指定对象
func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}

// FromJSONBytes 将JSON字节数组转换为对象
func FromJSONBytes[T any](data []byte) (T, error) {
	var v T
	err := api.Unmarshal(data, &v)
	return v, err
}

// Valid 验证是否为有效的JSON
func Valid(data []byte) bool {
	return api.Valid(data)
}

// FormValue 把参数值转成表单字段：标量直接格式化，嵌套结构序列化为 JSON
func FormValue(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case []byte:
		return string(val), nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case fmt.Stringer:
		return val.String(), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	default:
		s, err := MarshalString(v)
		if err != nil {
			return "", fmt.Errorf("encode form value: %w", err)
		}
		return s, nil
	}
}
