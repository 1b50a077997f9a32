package normalize

import "reflect"

// ==========================================
// 策略结构化 diff
// 保存策略时不整体 PUT，只提交相对原始文档的结构化补丁
// ==========================================

// BuildPatch 递归计算 edited 相对 original 的结构化补丁
// 规则:
//   - 对象逐 key 递归
//   - 数组只要有任一元素不同就整体替换
//   - 标量不等时取 edited 的值
//   - edited 里删掉的 key 以 null 表示
//
// 两份文档一致时返回 nil
func BuildPatch(original, edited map[string]interface{}) map[string]interface{} {
	patch := make(map[string]interface{})

	for k, ev := range edited {
		ov, exists := original[k]
		if !exists {
			patch[k] = ev
			continue
		}
		if d, changed := diffValue(ov, ev); changed {
			patch[k] = d
		}
	}

	// 被删除的 key
	for k := range original {
		if _, exists := edited[k]; !exists {
			patch[k] = nil
		}
	}

	if len(patch) == 0 {
		return nil
	}
	return patch
}

// diffValue 单值 diff，返回 (补丁值, 是否有变化)
func diffValue(ov, ev interface{}) (interface{}, bool) {
	om, oIsMap := ov.(map[string]interface{})
	em, eIsMap := ev.(map[string]interface{})
	if oIsMap && eIsMap {
		sub := BuildPatch(om, em)
		if sub == nil {
			return nil, false
		}
		return sub, true
	}

	oa, oIsArr := ov.([]interface{})
	ea, eIsArr := ev.([]interface{})
	if oIsArr && eIsArr {
		if reflect.DeepEqual(oa, ea) {
			return nil, false
		}
		// 数组整体替换
		return ea, true
	}

	if reflect.DeepEqual(ov, ev) {
		return nil, false
	}
	return ev, true
}

// ApplyPatch 把补丁应用到文档上 (测试与预览用)
// null 值表示删除该 key
func ApplyPatch(original, patch map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(original))
	for k, v := range original {
		out[k] = v
	}
	for k, pv := range patch {
		if pv == nil {
			delete(out, k)
			continue
		}
		pm, pIsMap := pv.(map[string]interface{})
		om, oIsMap := out[k].(map[string]interface{})
		if pIsMap && oIsMap {
			out[k] = ApplyPatch(om, pm)
			continue
		}
		out[k] = pv
	}
	return out
}
