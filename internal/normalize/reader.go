package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ==========================================
// 别名收敛读取器
// 上游同一个逻辑字段会以 snake/camel/legacy 多套名字出现
// (如 store_id / storeId / shop_id)，全部在这一层收掉，
// 别名不允许泄漏到 normalize 之外
// ==========================================

// 各逻辑字段的别名表，按优先级排列
var (
	storeIDAliases      = []string{"store_id", "storeId", "shop_id", "shopId"}
	advertiserIDAliases = []string{"advertiser_id", "advertiserId", "adv_id", "advId"}
	bcIDAliases         = []string{"bc_id", "bcId", "business_center_id", "businessCenterId"}
	productIDAliases    = []string{"product_id", "productId", "spu_id", "spuId", "item_id", "itemId"}
	campaignIDAliases   = []string{"campaign_id", "campaignId", "series_id", "seriesId"}
	authIDAliases       = []string{"auth_id", "authId", "account_id", "accountId"}
	labelAliases        = []string{"display_name", "displayName", "label", "name", "title"}
	opStatusAliases     = []string{"operation_status", "operationStatus", "opt_status", "status"}
	authStatusAliases   = []string{"authorization_status", "authorizationStatus", "auth_status", "authStatus"}
	sessionIDAliases    = []string{"session_id", "sessionId"}
	timestampAliases    = []string{"timestamp", "time", "created_at", "createdAt"}
)

// NormalizeID id 统一处理: trim + 字符串化，空值归一为 ""
func NormalizeID(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case gjson.Result:
		if !x.Exists() || x.Type == gjson.Null {
			return ""
		}
		return strings.TrimSpace(x.String())
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		// JSON 数字默认解析成 float64，id 不应带小数
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// readString 按别名序取第一个非空字符串
func readString(obj gjson.Result, aliases ...string) string {
	for _, key := range aliases {
		v := obj.Get(key)
		if v.Exists() && v.Type != gjson.Null {
			if s := strings.TrimSpace(v.String()); s != "" {
				return s
			}
		}
	}
	return ""
}

// readBoolPtr 取布尔字段，缺失时返回 nil (与 false 区分)
func readBoolPtr(obj gjson.Result, aliases ...string) *bool {
	for _, key := range aliases {
		v := obj.Get(key)
		if v.Exists() && v.Type != gjson.Null {
			b := v.Bool()
			return &b
		}
	}
	return nil
}

// readFloat 按别名序取第一个存在的数字
func readFloat(obj gjson.Result, aliases ...string) float64 {
	for _, key := range aliases {
		v := obj.Get(key)
		if v.Exists() && v.Type != gjson.Null {
			return v.Float()
		}
	}
	return 0
}

// readInt 按别名序取第一个存在的整数
func readInt(obj gjson.Result, aliases ...string) int64 {
	for _, key := range aliases {
		v := obj.Get(key)
		if v.Exists() && v.Type != gjson.Null {
			return v.Int()
		}
	}
	return 0
}

// firstArray 在多个候选路径里找第一个数组
// 支持顶层本身就是数组的 payload
func firstArray(doc gjson.Result, paths ...string) []gjson.Result {
	if doc.IsArray() {
		return doc.Array()
	}
	for _, p := range paths {
		v := doc.Get(p)
		if v.Exists() && v.IsArray() {
			return v.Array()
		}
	}
	return nil
}

// firstObject 在多个候选路径里找第一个对象，找不到时返回 doc 自身
func firstObject(doc gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		v := doc.Get(p)
		if v.Exists() && v.IsObject() {
			return v
		}
	}
	return doc
}

// ExtractLinkMap 提取邻接表 id -> [id...]
// keys 是该邻接表的候选名 (如 "bc_to_advertisers", "bcToAdvertisers")
// key 和 value 都会 trim，空值丢弃；缺失时返回空 map
func ExtractLinkMap(links gjson.Result, keys ...string) map[string][]string {
	out := make(map[string][]string)
	if !links.Exists() || !links.IsObject() {
		return out
	}
	for _, key := range keys {
		m := links.Get(key)
		if !m.Exists() || !m.IsObject() {
			continue
		}
		m.ForEach(func(k, v gjson.Result) bool {
			id := strings.TrimSpace(k.String())
			if id == "" {
				return true
			}
			var vals []string
			for _, item := range v.Array() {
				if s := strings.TrimSpace(item.String()); s != "" {
					vals = append(vals, s)
				}
			}
			out[id] = vals
			return true
		})
		return out
	}
	return out
}

// readIDList 读取 id 数组；元素可以是字符串，也可以是带别名 id 字段的对象
func readIDList(v gjson.Result, objectAliases []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, item := range v.Array() {
		var id string
		if item.IsObject() {
			id = readString(item, objectAliases...)
		} else {
			id = strings.TrimSpace(item.String())
		}
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
