package main

import "encoding/xml"

type getUserRequest struct {
	XMLName xml.Name `xml:"https://bingads.microsoft.com/Customer/v13 GetUserRequest"`
	UserID  *int64   `xml:"UserId,omitempty"`
}

type getUserResponse struct {
	XMLName xml.Name `xml:"https://bingads.microsoft.com/Customer/v13 GetUserResponse"`
	User    struct {
		ID       int64  `xml:"Id"`
		UserName string `xml:"UserName"`
		Name     struct {
			FirstName string `xml:"FirstName"`
			LastName  string `xml:"LastName"`
		} `xml:"Name"`
	} `xml:"User"`
}
