package contracts

// HorizonBucket 예측 수평선 버킷
type HorizonBucket string

const (
	Bucket1to7    HorizonBucket = "1-7"
	Bucket8to14   HorizonBucket = "8-14"
	Bucket15to30  HorizonBucket = "15-30"
	Bucket31to90  HorizonBucket = "31-90"
	Bucket91to380 HorizonBucket = "91-380"
	BucketOther   HorizonBucket = "other"
)

// HorizonBuckets 가중치 적합 대상 버킷 (짧은 순)
// 데이터가 부족한 버킷은 앞 버킷의 가중치를 상속한다
var HorizonBuckets = []HorizonBucket{
	Bucket1to7,
	Bucket8to14,
	Bucket15to30,
	Bucket31to90,
	Bucket91to380,
}

// BucketFor assigns a horizon (in days) to its bucket
func BucketFor(horizon int) HorizonBucket {
	switch {
	case horizon >= 1 && horizon <= 7:
		return Bucket1to7
	case horizon >= 8 && horizon <= 14:
		return Bucket8to14
	case horizon >= 15 && horizon <= 30:
		return Bucket15to30
	case horizon >= 31 && horizon <= 90:
		return Bucket31to90
	case horizon >= 91 && horizon <= 380:
		return Bucket91to380
	default:
		return BucketOther
	}
}
