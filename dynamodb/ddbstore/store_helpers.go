package ddbstore

import "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

func ptrStr(s string) *string {
	return &s
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{
		Message: ptrStr("The conditional request failed"),
	}
}
