package csvimport

import "strings"

// Template returns a CSV template with the exact expected header row and
// example data rows, using the same delimiter the parser expects.
func Template() string {
	lines := []string{
		strings.Join(ExpectedHeaders, ","),
		"サンプル物件1,東京都渋谷区1-1-1,マンション,150000,25.5,1,駅徒歩5分の好立地物件",
		"サンプル物件2,東京都新宿区2-2-2,アパート,80000,18.0,1,学生向け物件",
		"サンプル物件3,東京都品川区3-3-3,戸建て,300000,85.0,3,ファミリー向け一戸建て",
	}
	return strings.Join(lines, "\n") + "\n"
}
