package report

import "time"

const sampleCSV = `comment,sentiment_label,sentiment_score,summary
This product is amazing! Highly recommend it.,POSITIVE,0.995,Product is amazing and recommended.
Not satisfied with the quality. Could be better.,NEGATIVE,0.892,"Quality not satisfactory, needs improvement."
Great customer service and fast delivery.,POSITIVE,0.967,Great service and fast delivery.
`

// SampleReport returns the example of the expected input layout.
func SampleReport(now time.Time) *Report {
	rep, err := Load([]byte(sampleCSV), FormatCSV, now)
	if err != nil {
		panic(err)
	}
	return rep
}
