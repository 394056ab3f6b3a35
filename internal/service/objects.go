package service

import "path"

const objectPrefix = "reports"

// documentObjectKey and payloadObjectKey name the ciphertext blobs of one
// generation of a report. Each generation gets fresh keys so a failed write
// never clobbers the previous ciphertext.
func documentObjectKey(reportID, generation string) string {
	return path.Join(objectPrefix, reportID, generation+".document")
}

func payloadObjectKey(reportID, generation string) string {
	return path.Join(objectPrefix, reportID, generation+".payload")
}
